package cryptoutil

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// GenerateOpaqueToken returns a random, URL-safe opaque secret prefixed
// with prefix (e.g. "pierre_ak_", "pierre_admin_"), following the
// prefix-then-hash convention used for API keys and admin tokens: the
// prefix alone is stored in plaintext for display/lookup, the full value
// is shown to the caller exactly once and only its Argon2id hash is kept.
func GenerateOpaqueToken(prefix string) (full string, displayPrefix string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("cryptoutil: generate token: %w", err)
	}
	secret := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw))
	full = prefix + secret
	displayPrefix = prefix + secret[:min(6, len(secret))]
	return full, displayPrefix, nil
}
