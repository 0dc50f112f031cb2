package call

import (
	"errors"
	"testing"
)

func TestValidateSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"ten digits", "0123456789", false},
		{"all zeros", "0000000000", false},
		{"all nines", "9999999999", false},
		{"empty", "", true},
		{"too short", "123456789", true},
		{"too long", "01234567890", true},
		{"letter inside", "12345a7890", true},
		{"space inside", "12345 7890", true},
		{"leading plus", "+123456789", true},
		{"unicode digit", "１234567890", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSecret(tt.secret)
			if tt.wantErr && !errors.Is(err, ErrInvalidSecret) {
				t.Errorf("ValidateSecret(%q) = %v, want ErrInvalidSecret", tt.secret, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateSecret(%q) = %v, want nil", tt.secret, err)
			}
		})
	}
}
