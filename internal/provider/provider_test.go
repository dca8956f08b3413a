package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

type fakeAdapter struct{ name string }

func (f fakeAdapter) Name() string { return f.name }
func (f fakeAdapter) GetAthlete(ctx context.Context, accessToken string) (*Athlete, error) {
	return &Athlete{ID: "athlete-1"}, nil
}
func (f fakeAdapter) GetActivities(ctx context.Context, accessToken string, params ActivityListParams) ([]Activity, error) {
	return nil, nil
}
func (f fakeAdapter) GetActivity(ctx context.Context, accessToken, activityID string) (*Activity, error) {
	return &Activity{ID: activityID}, nil
}
func (f fakeAdapter) GetStats(ctx context.Context, accessToken, athleteID string) (*Stats, error) {
	return &Stats{}, nil
}
func (f fakeAdapter) GetSleepSessions(ctx context.Context, accessToken string, params ActivityListParams) ([]SleepSession, error) {
	return nil, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeAdapter{name: "strava"})

	got, err := r.Get("strava")
	require.NoError(t, err)
	require.Equal(t, "strava", got.Name())
}

func TestRegistry_GetUnknownProvider(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("does-not-exist")
	require.Equal(t, pierreerr.KindInvalidRequest, pierreerr.KindOf(err))
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeAdapter{name: "strava"})
	r.Register(fakeAdapter{name: "fitbit"})
	require.ElementsMatch(t, []string{"strava", "fitbit"}, r.Names())
}
