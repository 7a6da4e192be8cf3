package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/scrypt"
)

var (
	// ErrEncryptionFailed indicates a secret could not be encrypted
	ErrEncryptionFailed = errors.New("secret encryption failed")
	// ErrDecryptionFailed indicates a secret could not be decrypted (key mismatch or corrupted data)
	ErrDecryptionFailed = errors.New("secret decryption failed")
)

// keySalt is fixed so the same passphrase always derives the same key.
// Rotating it invalidates every stored secret.
var keySalt = []byte("mailvault.secrets.v1")

// Box encrypts and decrypts secrets with AES-256-GCM.
type Box struct {
	key []byte
}

// NewBox derives a 32-byte AES key from the configured passphrase via scrypt.
// An empty passphrase is refused; callers treat that as a startup-fatal condition.
func NewBox(passphrase string) (*Box, error) {
	if passphrase == "" {
		return nil, errors.New("encryption key not configured")
	}
	key, err := scrypt.Key([]byte(passphrase), keySalt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, err
	}
	return &Box{key: key}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (b *Box) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", ErrEncryptionFailed
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrEncryptionFailed
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", ErrEncryptionFailed
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt.
func (b *Box) Decrypt(encoded string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	block, err := aes.NewCipher(b.key)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrDecryptionFailed
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}
