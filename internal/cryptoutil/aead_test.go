package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testAEAD(t *testing.T) *AEAD {
	t.Helper()
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	a, err := NewAEAD(key)
	require.NoError(t, err)
	return a
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	a := testAEAD(t)
	plaintext := []byte("strava-access-token-value")

	ciphertext, nonce, err := a.Encrypt(plaintext)
	require.NoError(t, err)

	got, err := a.Decrypt(ciphertext, nonce)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestEncryptNonceUniqueness(t *testing.T) {
	a := testAEAD(t)
	plaintext := []byte("same-plaintext-twice")

	ct1, n1, err := a.Encrypt(plaintext)
	require.NoError(t, err)
	ct2, n2, err := a.Encrypt(plaintext)
	require.NoError(t, err)

	require.NotEqual(t, n1, n2, "nonces must never repeat")
	require.NotEqual(t, ct1, ct2, "ciphertexts of the same plaintext must differ")
}

func TestDecryptWrongKeyFails(t *testing.T) {
	a := testAEAD(t)
	ciphertext, nonce, err := a.Encrypt([]byte("secret"))
	require.NoError(t, err)

	other := make([]byte, KeySize)
	other[0] = 0xFF
	b, err := NewAEAD(other)
	require.NoError(t, err)

	_, err = b.Decrypt(ciphertext, nonce)
	require.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	a := testAEAD(t)
	ciphertext, nonce, err := a.Encrypt([]byte("secret"))
	require.NoError(t, err)

	ciphertext[0] ^= 0xFF
	_, err = a.Decrypt(ciphertext, nonce)
	require.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestNewAEADRejectsBadKeyLength(t *testing.T) {
	_, err := NewAEAD([]byte("too-short"))
	require.Error(t, err)
}
