package ui

import (
	"testing"
	"time"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		secret string
		want   string
	}{
		{"0123456789", "********89"},
		{"42", "42"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := maskSecret(tt.secret); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
		}
	}
}

func TestFormatCallDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{42 * time.Second, "00:42"},
		{3*time.Minute + 5*time.Second, "03:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}

	for _, tt := range tests {
		if got := formatCallDuration(tt.d); got != tt.want {
			t.Errorf("formatCallDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
