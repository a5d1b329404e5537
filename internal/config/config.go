package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Storage     StorageConfig     `yaml:"storage"`
	Location    LocationConfig    `yaml:"location"`
	Push        PushConfig        `yaml:"push"`
	Permissions PermissionsConfig `yaml:"permissions"`
	JWT         JWTConfig         `yaml:"jwt"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// StorageConfig holds media storage configuration
type StorageConfig struct {
	MediaDir string   `yaml:"media_dir"`
	S3       S3Config `yaml:"s3"`
}

// S3Config holds the optional S3 archive configuration
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"` // custom endpoint for S3-compatible stores
}

// LocationConfig holds geolocation request defaults
type LocationConfig struct {
	HighAccuracy    bool    `yaml:"high_accuracy"`
	TimeoutMs       int     `yaml:"timeout_ms"`
	MaxAgeMs        int     `yaml:"max_age_ms"`
	DistanceFilterM float64 `yaml:"distance_filter_m"`
}

// Timeout returns the location request timeout as a duration
func (c *LocationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// MaxAge returns the accepted cached-fix age as a duration
func (c *LocationConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeMs) * time.Millisecond
}

// PushConfig holds delivery-confirmation configuration
type PushConfig struct {
	Mode string     `yaml:"mode"` // "stub" or "apns"
	APNS APNSConfig `yaml:"apns"`
}

// APNSConfig holds APNs client configuration
type APNSConfig struct {
	CertFile     string `yaml:"cert_file"`
	CertPassword string `yaml:"cert_password"`
	Topic        string `yaml:"topic"`
	Production   bool   `yaml:"production"`
}

// PermissionsConfig lists permissions the operator grants to devices
type PermissionsConfig struct {
	Granted []string `yaml:"granted"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Location.TimeoutMs == 0 {
		cfg.Location.TimeoutMs = 15000
	}
	if cfg.Location.MaxAgeMs == 0 {
		cfg.Location.MaxAgeMs = 10000
	}
	if cfg.Push.Mode == "" {
		cfg.Push.Mode = "stub"
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
