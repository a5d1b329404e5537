package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	s := NewDeviceService(nil, "test-secret")

	token, err := s.GenerateJWT("device-123")
	require.NoError(t, err)

	deviceID, err := s.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "device-123", deviceID)
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	issuer := NewDeviceService(nil, "secret-a")
	verifier := NewDeviceService(nil, "secret-b")

	token, err := issuer.GenerateJWT("device-123")
	require.NoError(t, err)

	_, err = verifier.ValidateJWT(token)
	assert.Error(t, err)
}

func TestGenerateCodeShape(t *testing.T) {
	for i := 0; i < 20; i++ {
		code := generateCode()
		assert.Len(t, code, codeLength)
		for _, c := range code {
			assert.Contains(t, codeChars, string(c))
		}
	}
}
