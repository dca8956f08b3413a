// Package cryptoutil implements the crypto and secret store component
// (C1): authenticated encryption for at-rest secrets, the per-deployment
// master-key bootstrap, and the Argon2id hashing used for passwords, API
// keys, and OAuth2 client secrets.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidCiphertext is returned when decryption fails, whether due to
// tampering, a wrong key, or a malformed nonce.
var ErrInvalidCiphertext = errors.New("cryptoutil: invalid ciphertext")

// KeySize is the AES-256-GCM key length in bytes.
const KeySize = 32

// AEAD wraps a single 256-bit master key used for all encrypt/decrypt
// calls in a deployment.
type AEAD struct {
	key []byte
}

// NewAEAD validates the key length and returns an AEAD sealer/opener.
func NewAEAD(key []byte) (*AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cryptoutil: master key must be %d bytes, got %d", KeySize, len(key))
	}
	return &AEAD{key: key}, nil
}

func (a *AEAD) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(a.key)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext and returns the ciphertext and the random
// 96-bit nonce used to produce it. A fresh nonce is drawn from
// crypto/rand on every call, so encrypting the same plaintext twice
// yields different ciphertexts (spec invariant #5).
func (a *AEAD) Encrypt(plaintext []byte) (ciphertext, nonce []byte, err error) {
	gcm, err := a.gcm()
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("cryptoutil: generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext sealed with the given nonce. Any failure
// (wrong key, tampered ciphertext, malformed nonce) is reported as
// ErrInvalidCiphertext so callers never distinguish the failure mode,
// which would leak information to an attacker.
func (a *AEAD) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	gcm, err := a.gcm()
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return plaintext, nil
}

// EncryptString is a convenience wrapper for string secrets.
func (a *AEAD) EncryptString(plaintext string) (ciphertext, nonce []byte, err error) {
	return a.Encrypt([]byte(plaintext))
}

// DecryptString is a convenience wrapper for string secrets.
func (a *AEAD) DecryptString(ciphertext, nonce []byte) (string, error) {
	pt, err := a.Decrypt(ciphertext, nonce)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
