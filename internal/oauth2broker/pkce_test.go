package oauth2broker

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyPKCENoChallengeSkipsCheck(t *testing.T) {
	require.NoError(t, VerifyPKCE("", "", ""))
}

func TestVerifyPKCEPlainMatches(t *testing.T) {
	require.NoError(t, VerifyPKCE("abc123", "plain", "abc123"))
}

func TestVerifyPKCEPlainMismatch(t *testing.T) {
	require.Error(t, VerifyPKCE("abc123", "plain", "wrong"))
}

func TestVerifyPKCES256Matches(t *testing.T) {
	verifier := "some-high-entropy-verifier-string-value"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	require.NoError(t, VerifyPKCE(challenge, "S256", verifier))
}

func TestVerifyPKCES256Mismatch(t *testing.T) {
	require.Error(t, VerifyPKCE("bogus-challenge", "S256", "some-verifier"))
}

func TestVerifyPKCEMissingVerifierWhenChallengePresent(t *testing.T) {
	require.Error(t, VerifyPKCE("abc123", "plain", ""))
}

func TestVerifyPKCEUnsupportedMethod(t *testing.T) {
	require.Error(t, VerifyPKCE("abc123", "weird", "abc123"))
}
