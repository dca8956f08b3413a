package auth

import (
	"context"

	"github.com/pierre-fitness/pierre-core/internal/cryptoutil"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// UserRecord is the subset of the User entity (spec §3) the login flow
// needs. The real row lives in internal/store; this package only depends
// on this narrow view to stay free of a store import.
type UserRecord struct {
	ID           string
	Email        string
	PasswordHash string
	Tier         string
	TenantID     string
	Status       string // Pending | Active | Suspended
}

// UserLookup resolves a user by email for the login flow.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
}

// LoginRateLimiter is the rate-limit/lockout check a login handler
// consults before comparing a password hash, grounded on
// wisbric-nightowl's LoginRateLimiter interface shape.
type LoginRateLimiter interface {
	Check(ctx context.Context, email string) error
	Record(ctx context.Context, email string, success bool)
}

// Login implements the password-login half of C3: verify credentials,
// enforce user lifecycle state, and issue a user JWT on success.
// Grounded on wisbric-nightowl's HandleLocalLogin shape (rate-limit check,
// hash compare, issue credential) with bcrypt replaced by Argon2id and
// session-cookie issuance replaced by JWT issuance.
func Login(ctx context.Context, km *KeyManager, users UserLookup, limiter LoginRateLimiter, email, password string) (string, error) {
	if err := limiter.Check(ctx, email); err != nil {
		return "", err
	}

	user, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		limiter.Record(ctx, email, false)
		return "", pierreerr.New(pierreerr.KindInvalidCredential, "invalid email or password")
	}

	ok, err := cryptoutil.VerifySecret(password, user.PasswordHash)
	if err != nil || !ok {
		limiter.Record(ctx, email, false)
		return "", pierreerr.New(pierreerr.KindInvalidCredential, "invalid email or password")
	}

	switch user.Status {
	case "Pending":
		limiter.Record(ctx, email, false)
		return "", pierreerr.New(pierreerr.KindAccountPending, "account is pending admin approval")
	case "Suspended":
		limiter.Record(ctx, email, false)
		return "", pierreerr.New(pierreerr.KindAccountSuspended, "account has been suspended")
	}

	limiter.Record(ctx, email, true)

	return km.IssueUserJWT(user.ID, user.Tier, user.TenantID, DefaultUserTokenTTL)
}

// HashPassword is a thin re-export so callers only need internal/auth
// for the registration flow, keeping cryptoutil an implementation detail.
func HashPassword(password string) (string, error) {
	return cryptoutil.HashSecret(password)
}
