package call

// SecretLength is the required PIN length. The PIN doubles as the room
// name and as the key-derivation seed, so both parties must type it
// identically; a fixed all-digit shape keeps that easy to communicate
// out-of-band.
const SecretLength = 10

// ValidateSecret checks that secret is exactly SecretLength digits.
// A malformed secret is rejected before any side effect: no key is
// derived and no join is attempted.
func ValidateSecret(secret string) error {
	if len(secret) != SecretLength {
		return ErrInvalidSecret
	}
	for _, r := range secret {
		if r < '0' || r > '9' {
			return ErrInvalidSecret
		}
	}
	return nil
}
