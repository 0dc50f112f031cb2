package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. Both parties derive the call key from the
// shared PIN alone, so the salt and iteration count are fixed: the same
// PIN must regenerate the same key on two machines that never exchange
// anything besides the PIN itself. The PIN is the sole trust anchor.
const (
	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32

	// Iterations is the PBKDF2 iteration count.
	Iterations = 100_000
)

// kdfSalt is deliberately constant. Randomizing it would require a key
// exchange step, which this trust model does not have.
var kdfSalt = []byte("secure-video-call/v1")

// DeriveKey stretches the shared secret into a 256-bit symmetric key
// using PBKDF2-HMAC-SHA256. It is pure: the same secret always yields
// the same key, on any machine, at any time.
func DeriveKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), kdfSalt, Iterations, KeySize, sha256.New)
}
