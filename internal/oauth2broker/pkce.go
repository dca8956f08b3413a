package oauth2broker

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// VerifyPKCE checks a code_verifier against the code_challenge recorded at
// authorize time, per RFC 7636. method is "S256" or "plain"; a missing
// challenge means the client never opted into PKCE and verification is
// skipped (public clients are still expected to use it, but spec §4.4
// only mandates rejection when a challenge was actually stored).
func VerifyPKCE(challenge, method, verifier string) error {
	if challenge == "" {
		return nil
	}
	if verifier == "" {
		return pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: code_verifier is required")
	}

	switch method {
	case "", "plain":
		if subtle.ConstantTimeCompare([]byte(challenge), []byte(verifier)) != 1 {
			return pierreerr.New(pierreerr.KindInvalidCredential, "invalid_grant: code_verifier does not match code_challenge")
		}
	case "S256":
		sum := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(challenge), []byte(computed)) != 1 {
			return pierreerr.New(pierreerr.KindInvalidCredential, "invalid_grant: code_verifier does not match code_challenge")
		}
	default:
		return pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: unsupported code_challenge_method")
	}
	return nil
}
