// Package auth implements the Auth Manager (C3): JWKS-backed RS256 key
// management, user and admin JWT issuance/validation, Argon2id-backed
// password and API-key checks, and request-scoped principal resolution.
package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// KeySize is the RSA modulus size used for signing keys.
const KeySize = 2048

// signingKey is one generation of the server's RS256 key pair.
type signingKey struct {
	kid        string
	private    *rsa.PrivateKey
	public     *rsa.PublicKey
	issuedAt   time.Time
	retireAt   time.Time // stop accepting for verification after this
}

// KeyManager owns the server's own RS256 signing keys (spec §4.3: "Signing
// keys managed by a JWKS component: key rotation emits a new kid, old keys
// retained for verification until expiry"). This server is the issuer —
// it is not validating tokens from an external IdP, unlike the teacher's
// upstream-IdP JWKS cache, which this package's shape is grounded on but
// inverted in direction.
type KeyManager struct {
	mu         sync.RWMutex
	keys       map[string]*signingKey
	currentKid string
	retention  time.Duration
}

// NewKeyManager creates a manager with one freshly generated signing key.
// retention controls how long a retired key remains valid for verifying
// already-issued tokens after a rotation.
func NewKeyManager(retention time.Duration) (*KeyManager, error) {
	km := &KeyManager{
		keys:      make(map[string]*signingKey),
		retention: retention,
	}
	if err := km.Rotate(); err != nil {
		return nil, err
	}
	return km, nil
}

// Rotate generates a new signing key and makes it current; the previously
// current key remains valid for verification until retention elapses.
func (km *KeyManager) Rotate() error {
	priv, err := rsa.GenerateKey(rand.Reader, KeySize)
	if err != nil {
		return fmt.Errorf("auth: generate signing key: %w", err)
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	if prev, ok := km.keys[km.currentKid]; ok {
		prev.retireAt = time.Now().Add(km.retention)
	}

	kid := uuid.NewString()
	km.keys[kid] = &signingKey{
		kid:      kid,
		private:  priv,
		public:   &priv.PublicKey,
		issuedAt: time.Now(),
		retireAt: time.Now().Add(km.retention),
	}
	km.currentKid = kid
	km.sweepLocked()
	return nil
}

func (km *KeyManager) sweepLocked() {
	now := time.Now()
	for kid, k := range km.keys {
		if kid == km.currentKid {
			continue
		}
		if now.After(k.retireAt) {
			delete(km.keys, kid)
		}
	}
}

// current returns the key used to sign new tokens.
func (km *KeyManager) current() (*signingKey, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()
	k, ok := km.keys[km.currentKid]
	if !ok {
		return nil, fmt.Errorf("auth: no current signing key")
	}
	return k, nil
}

// byKid looks up a (possibly retired) key for verification.
func (km *KeyManager) byKid(kid string) (*signingKey, bool) {
	km.mu.RLock()
	defer km.mu.RUnlock()
	k, ok := km.keys[kid]
	if ok && kid != km.currentKid && time.Now().After(k.retireAt) {
		return nil, false
	}
	return k, ok
}

// JWK is the public-key JSON shape exposed at the JWKS endpoint.
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS returns the current JSON Web Key Set covering every key still valid
// for verification, so clients caching the set across a rotation do not
// reject tokens signed just before the cache refreshed.
func (km *KeyManager) JWKS() []JWK {
	km.mu.RLock()
	defer km.mu.RUnlock()

	out := make([]JWK, 0, len(km.keys))
	for _, k := range km.keys {
		out = append(out, JWK{
			Kid: k.kid,
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			N:   base64URLEncodeBigInt(k.public.N),
			E:   base64URLEncodeInt(k.public.E),
		})
	}
	return out
}
