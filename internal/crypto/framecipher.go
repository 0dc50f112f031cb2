package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"sync/atomic"
)

// NonceSize is the AES-GCM nonce length. Every encrypted frame starts
// with its nonce, so the receiver needs no side channel to recover it.
const NonceSize = 12

// FrameCipher encrypts and decrypts individual media frames with
// AES-256-GCM. One instance serves one direction of one call: the send
// side draws nonces from a monotonic counter that is never reset, the
// receive side uses the nonce carried by each frame.
//
// A FrameCipher with no key passes frames through unchanged. Callers
// that need confidentiality must arm the cipher before any frame flows.
type FrameCipher struct {
	aead    cipher.AEAD
	counter atomic.Uint64

	encrypted atomic.Uint64
	decrypted atomic.Uint64
	dropped   atomic.Uint64
}

// FrameStats is a snapshot of a cipher's frame counters. Dropped counts
// frames that failed authentication and were discarded.
type FrameStats struct {
	Encrypted uint64
	Decrypted uint64
	Dropped   uint64
}

// NewFrameCipher creates a cipher armed with the given 32-byte key.
func NewFrameCipher(key []byte) (*FrameCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &FrameCipher{aead: aead}, nil
}

// NewPassthrough creates an unarmed cipher that forwards frames as-is.
func NewPassthrough() *FrameCipher {
	return &FrameCipher{}
}

// Encrypt seals one outbound frame and returns nonce || ciphertext.
// Without a key the frame is returned unchanged. The nonce is the next
// counter value written as two big-endian 32-bit halves; it is unique
// for the lifetime of this instance.
func (c *FrameCipher) Encrypt(frame []byte) []byte {
	if c.aead == nil {
		return frame
	}

	n := c.counter.Add(1) - 1
	nonce := make([]byte, NonceSize, NonceSize+len(frame)+c.aead.Overhead())
	binary.BigEndian.PutUint32(nonce[0:4], uint32(n>>32))
	binary.BigEndian.PutUint32(nonce[4:8], uint32(n))

	out := c.aead.Seal(nonce, nonce[:NonceSize], frame, nil)
	c.encrypted.Add(1)
	return out
}

// Decrypt opens one inbound frame. Without a key, or for input shorter
// than a nonce, the frame is returned unchanged. A frame that fails
// authentication yields nil: it is dropped and counted, and the next
// frame is attempted independently. Each frame carries its own nonce,
// so there is no shared state to resynchronize.
func (c *FrameCipher) Decrypt(frame []byte) []byte {
	if c.aead == nil || len(frame) < NonceSize {
		return frame
	}

	nonce, ciphertext := frame[:NonceSize], frame[NonceSize:]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		c.dropped.Add(1)
		return nil
	}
	c.decrypted.Add(1)
	return plain
}

// Armed reports whether a key is set.
func (c *FrameCipher) Armed() bool {
	return c.aead != nil
}

// Stats returns a snapshot of the frame counters.
func (c *FrameCipher) Stats() FrameStats {
	return FrameStats{
		Encrypted: c.encrypted.Load(),
		Decrypted: c.decrypted.Load(),
		Dropped:   c.dropped.Load(),
	}
}
