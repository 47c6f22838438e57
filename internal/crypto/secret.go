package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// keySize is the fixed secretbox key length. ENCRYPTION_KEY may be any
// length ≥ 32 bytes (§6); it is folded down to exactly 32 bytes with
// SHA-256 so operators can supply a passphrase of any sufficient length.
const keySize = 32

// deriveKey folds an arbitrary-length secret into a fixed-size secretbox
// key. Fails the caller's startup check separately (§6): this function
// itself does not enforce the ≥32-byte rule, startup validation does.
func deriveKey(secret []byte) *[keySize]byte {
	sum := sha256.Sum256(secret)
	return &sum
}

// Encrypt symmetrically encrypts plaintext (e.g. a camera RTSP password)
// under the process-wide ENCRYPTION_KEY. The nonce is random and
// prepended to the ciphertext, matching the secretbox convention.
func Encrypt(secret, plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("encrypt: generate nonce: %w", err)
	}
	key := deriveKey(secret)
	out := secretbox.Seal(nonce[:], plaintext, &nonce, key)
	return out, nil
}

// Decrypt reverses Encrypt. Credentials are only decrypted inside the
// process that launches the ingest child (§4.4); the returned plaintext
// MUST NOT be logged by any caller.
func Decrypt(secret, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, fmt.Errorf("decrypt: ciphertext too short")
	}
	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])
	key := deriveKey(secret)
	out, ok := secretbox.Open(nil, ciphertext[24:], &nonce, key)
	if !ok {
		return nil, fmt.Errorf("decrypt: authentication failed")
	}
	return out, nil
}

// ValidateEncryptionKey enforces the §6 startup contract: ENCRYPTION_KEY
// must be at least 32 bytes, or the server fails to start.
func ValidateEncryptionKey(key string) error {
	if len(key) < keySize {
		return fmt.Errorf("ENCRYPTION_KEY must be at least %d bytes, got %d", keySize, len(key))
	}
	return nil
}
