package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pierre-fitness/pierre-core/internal/cryptoutil"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

type fakeUserLookup struct {
	users map[string]*UserRecord
}

func (f *fakeUserLookup) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, pierreerr.New(pierreerr.KindNotFound, "no such user")
	}
	return u, nil
}

type fakeRateLimiter struct {
	checkErr error
	records  []bool
}

func (f *fakeRateLimiter) Check(ctx context.Context, email string) error {
	return f.checkErr
}

func (f *fakeRateLimiter) Record(ctx context.Context, email string, success bool) {
	f.records = append(f.records, success)
}

func newFakeUser(t *testing.T, email, password, status string) *UserRecord {
	hash, err := cryptoutil.HashSecret(password)
	require.NoError(t, err)
	return &UserRecord{
		ID:           "user-1",
		Email:        email,
		PasswordHash: hash,
		Tier:         "Starter",
		TenantID:     "tenant-1",
		Status:       status,
	}
}

func TestLoginHappyPath(t *testing.T) {
	km, err := NewKeyManager(0)
	require.NoError(t, err)
	user := newFakeUser(t, "a@example.com", "correct-horse", "Active")
	users := &fakeUserLookup{users: map[string]*UserRecord{"a@example.com": user}}
	limiter := &fakeRateLimiter{}

	tok, err := Login(context.Background(), km, users, limiter, "a@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := km.ValidateUserJWT(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, []bool{true}, limiter.records)
}

func TestLoginWrongPassword(t *testing.T) {
	km, err := NewKeyManager(0)
	require.NoError(t, err)
	user := newFakeUser(t, "a@example.com", "correct-horse", "Active")
	users := &fakeUserLookup{users: map[string]*UserRecord{"a@example.com": user}}
	limiter := &fakeRateLimiter{}

	_, err = Login(context.Background(), km, users, limiter, "a@example.com", "wrong")
	require.Error(t, err)
	require.Equal(t, pierreerr.KindInvalidCredential, pierreerr.KindOf(err))
}

func TestLoginUnknownEmail(t *testing.T) {
	km, err := NewKeyManager(0)
	require.NoError(t, err)
	users := &fakeUserLookup{users: map[string]*UserRecord{}}
	limiter := &fakeRateLimiter{}

	_, err = Login(context.Background(), km, users, limiter, "nobody@example.com", "whatever")
	require.Error(t, err)
	require.Equal(t, pierreerr.KindInvalidCredential, pierreerr.KindOf(err))
}

func TestLoginPendingAccount(t *testing.T) {
	km, err := NewKeyManager(0)
	require.NoError(t, err)
	user := newFakeUser(t, "a@example.com", "correct-horse", "Pending")
	users := &fakeUserLookup{users: map[string]*UserRecord{"a@example.com": user}}
	limiter := &fakeRateLimiter{}

	_, err = Login(context.Background(), km, users, limiter, "a@example.com", "correct-horse")
	require.Error(t, err)
	require.Equal(t, pierreerr.KindAccountPending, pierreerr.KindOf(err))
}

func TestLoginSuspendedAccount(t *testing.T) {
	km, err := NewKeyManager(0)
	require.NoError(t, err)
	user := newFakeUser(t, "a@example.com", "correct-horse", "Suspended")
	users := &fakeUserLookup{users: map[string]*UserRecord{"a@example.com": user}}
	limiter := &fakeRateLimiter{}

	_, err = Login(context.Background(), km, users, limiter, "a@example.com", "correct-horse")
	require.Error(t, err)
	require.Equal(t, pierreerr.KindAccountSuspended, pierreerr.KindOf(err))
}

func TestLoginRespectsRateLimitCheck(t *testing.T) {
	km, err := NewKeyManager(0)
	require.NoError(t, err)
	users := &fakeUserLookup{users: map[string]*UserRecord{}}
	limiter := &fakeRateLimiter{checkErr: pierreerr.New(pierreerr.KindRateLimited, "too many attempts")}

	_, err = Login(context.Background(), km, users, limiter, "a@example.com", "whatever")
	require.Error(t, err)
	require.Equal(t, pierreerr.KindRateLimited, pierreerr.KindOf(err))
	require.Empty(t, limiter.records)
}
