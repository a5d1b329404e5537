package models

import "time"

// Device represents a registered mobile client
type Device struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Token           string    `json:"token"`
	Platform        string    `json:"platform"`
	PlatformVersion int       `json:"platform_version"`
	Physical        bool      `json:"physical"`
	CreatedAt       time.Time `json:"created_at"`
}

// Coordinates is a latitude/longitude pair
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Position is a single geolocation fix
type Position struct {
	Coordinates
	Accuracy float64   `json:"accuracy,omitempty"`
	Time     time.Time `json:"time"`
}

// PhotoLog represents a persisted capture record
type PhotoLog struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	ImagePath string    `json:"image_path"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// PickerAsset is a single media item returned by the device-side picker
type PickerAsset struct {
	URI string `json:"uri"`
}

// PickerResponse is the wire shape of a device-side picker result
type PickerResponse struct {
	Cancelled    bool          `json:"cancelled"`
	ErrorCode    string        `json:"errorCode,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	Assets       []PickerAsset `json:"assets,omitempty"`
}
