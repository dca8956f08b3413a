package mcp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pierre-fitness/pierre-core/internal/auth"
)

func testPrincipal(userID string) auth.Principal {
	return auth.Principal{ID: userID, Kind: auth.PrincipalUser, UserID: userID, TenantID: "tenant-1"}
}

func TestSessionManager_Create(t *testing.T) {
	mgr := NewSessionManager(time.Hour, 0)
	defer mgr.Close()

	session := mgr.Create(testPrincipal("user-123"))

	require.NotEmpty(t, session.ID)
	require.Equal(t, "user-123", session.Principal.UserID)
	require.False(t, session.CreatedAt.IsZero())
	require.False(t, session.LastSeen.IsZero())
}

func TestSessionManager_Get(t *testing.T) {
	mgr := NewSessionManager(time.Hour, 0)
	defer mgr.Close()

	created := mgr.Create(testPrincipal("user-123"))

	retrieved, err := mgr.Get(created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, retrieved.ID)
	require.Equal(t, "user-123", retrieved.Principal.UserID)

	_, err = mgr.Get("non-existent")
	require.Error(t, err)
}

func TestSessionManager_GetTouchesLastSeen(t *testing.T) {
	mgr := NewSessionManager(time.Hour, 0)
	defer mgr.Close()

	session := mgr.Create(testPrincipal("user-123"))
	originalLastSeen := session.LastSeen

	time.Sleep(10 * time.Millisecond)

	updated, err := mgr.Get(session.ID)
	require.NoError(t, err)
	require.True(t, updated.LastSeen.After(originalLastSeen))
}

func TestSessionManager_Delete(t *testing.T) {
	mgr := NewSessionManager(time.Hour, 0)
	defer mgr.Close()

	session := mgr.Create(testPrincipal("user-123"))
	mgr.Delete(session.ID)

	_, err := mgr.Get(session.ID)
	require.Error(t, err)
}

func TestSessionManager_MaxEntriesEvictsOldest(t *testing.T) {
	mgr := NewSessionManager(time.Hour, 2)
	defer mgr.Close()

	first := mgr.Create(testPrincipal("user-1"))
	mgr.Create(testPrincipal("user-2"))
	third := mgr.Create(testPrincipal("user-3"))

	_, err := mgr.Get(first.ID)
	require.Error(t, err, "oldest session should have been evicted once capacity was exceeded")

	_, err = mgr.Get(third.ID)
	require.NoError(t, err)
}

func TestSessionManager_ThreadSafety(t *testing.T) {
	mgr := NewSessionManager(time.Hour, 0)
	defer mgr.Close()

	const numGoroutines = 10
	const numOpsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOpsPerGoroutine; j++ {
				session := mgr.Create(testPrincipal("user"))
				_, _ = mgr.Get(session.ID)
				mgr.Delete(session.ID)
			}
		}(i)
	}

	wg.Wait()
}
