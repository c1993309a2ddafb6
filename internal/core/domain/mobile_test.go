package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNormalizeMobile covers the accepted formats and the rejects
func TestNormalizeMobile(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"ten digit US", "5551234567", "+15551234567", false},
		{"formatted US", "(555) 123-4567", "+15551234567", false},
		{"eleven digit with country code", "15551234567", "+15551234567", false},
		{"already E.164", "+15551234567", "+15551234567", false},
		{"international with plus", "+447911123456", "+447911123456", false},
		{"too short", "12345", "", true},
		{"international without plus", "447911123456", "", true},
		{"letters only", "call-me-maybe", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeMobile(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMobile)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
