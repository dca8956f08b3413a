// Package provider declares the contract that upstream fitness-provider
// adapters (Strava, Fitbit, and similar) must satisfy. The adapters
// themselves are external collaborators — out of scope for the core,
// which only dispatches to whatever is registered at startup.
package provider

import (
	"context"
	"time"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// Athlete is the provider-agnostic profile shape tool handlers return.
type Athlete struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Activity is the provider-agnostic activity summary shape.
type Activity struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	StartDate      time.Time `json:"start_date"`
	DistanceMeters float64   `json:"distance_meters"`
	MovingSeconds  int64     `json:"moving_seconds"`
	ElevationGainM float64   `json:"elevation_gain_m,omitempty"`
}

// ActivityListParams mirrors the cache key tag ActivityList{page, per_page, before?, after?}.
type ActivityListParams struct {
	Page    int
	PerPage int
	Before  *time.Time
	After   *time.Time
}

// Stats is the provider-agnostic aggregate-stats shape.
type Stats struct {
	RecentRideTotals  map[string]float64 `json:"recent_ride_totals,omitempty"`
	RecentRunTotals   map[string]float64 `json:"recent_run_totals,omitempty"`
	YearToDateTotals  map[string]float64 `json:"year_to_date_totals,omitempty"`
	AllTimeTotals     map[string]float64 `json:"all_time_totals,omitempty"`
}

// SleepSession is the provider-agnostic sleep-session shape.
type SleepSession struct {
	ID          string    `json:"id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	DurationMin int       `json:"duration_minutes"`
	Efficiency  float64   `json:"efficiency,omitempty"`
}

// Adapter is the capability set a registered fitness-provider integration
// exposes, per spec §9 ("name, is_authenticated, get_activities,
// get_athlete, get_sleep_sessions, ..."). Implementations live outside
// this module; this core only calls through the interface with a valid
// access token supplied by the OAuth2 broker.
type Adapter interface {
	Name() string
	GetAthlete(ctx context.Context, accessToken string) (*Athlete, error)
	GetActivities(ctx context.Context, accessToken string, params ActivityListParams) ([]Activity, error)
	GetActivity(ctx context.Context, accessToken, activityID string) (*Activity, error)
	GetStats(ctx context.Context, accessToken, athleteID string) (*Stats, error)
	GetSleepSessions(ctx context.Context, accessToken string, params ActivityListParams) ([]SleepSession, error)
}

// Registry maps a provider name to its registered adapter, built once at
// startup from whatever adapters the deployment links in.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, pierreerr.New(pierreerr.KindInvalidRequest, "invalid_request: unknown provider "+name)
	}
	return a, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
