package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/cache"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
	"github.com/pierre-fitness/pierre-core/internal/provider"
)

// decodeParams unmarshals raw into dst and validates it, collapsing both
// failure modes into a single InvalidRequest domain error so every
// handler reports parameter problems uniformly.
func decodeParams(raw json.RawMessage, dst interface{ Validate() error }) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, dst); err != nil {
			return pierreerr.New(pierreerr.KindInvalidRequest, "invalid tool arguments: "+err.Error())
		}
	}
	if err := dst.Validate(); err != nil {
		return pierreerr.New(pierreerr.KindInvalidRequest, err.Error())
	}
	return nil
}

func (tc *ToolContext) userID() (uuid.UUID, error) {
	id, err := uuid.Parse(tc.Principal.UserID)
	if err != nil {
		return uuid.Nil, pierreerr.New(pierreerr.KindUnauthenticated, "tool call requires a user-bound principal")
	}
	return id, nil
}

func (tc *ToolContext) tenantID() string {
	return tc.Principal.TenantID
}

// HandleProviderConnect implements provider.connect: generate_auth_url.
func HandleProviderConnect(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var p ProviderParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	userID, err := tc.userID()
	if err != nil {
		return nil, err
	}
	tenantID, err := uuid.Parse(tc.tenantID())
	if err != nil {
		return nil, pierreerr.New(pierreerr.KindUnauthenticated, "tool call requires a tenant-bound principal")
	}

	result, err := tc.Upstream.GenerateAuthURL(ctx, userID, tenantID, p.Provider)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"url":                 result.URL,
		"state":               result.State,
		"expires_in_minutes":  result.ExpiresInMinutes,
	}, nil
}

// HandleProviderDisconnect implements provider.disconnect: deauthorize.
func HandleProviderDisconnect(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var p ProviderParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	userID, err := tc.userID()
	if err != nil {
		return nil, err
	}
	if err := tc.Upstream.Deauthorize(ctx, userID, p.Provider); err != nil {
		return nil, err
	}
	tc.Cache.InvalidatePattern(cache.Prefix(tc.tenantID(), tc.Principal.UserID, p.Provider))
	return map[string]any{"status": "disconnected", "provider": p.Provider}, nil
}

// HandleProviderIsAuthenticated implements provider.is_authenticated.
func HandleProviderIsAuthenticated(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var p ProviderParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	userID, err := tc.userID()
	if err != nil {
		return nil, err
	}
	authenticated, err := tc.Upstream.IsAuthenticated(ctx, userID, p.Provider)
	if err != nil {
		return nil, err
	}
	return map[string]any{"provider": p.Provider, "is_authenticated": authenticated}, nil
}

// cachedOrFetch checks the cache for key, and on miss calls fetch, caches
// the JSON-encoded result with ttl, and returns the encoded value.
func cachedOrFetch(tc *ToolContext, key cache.Key, ttl time.Duration, fetch func() (interface{}, error)) (json.RawMessage, error) {
	if raw, ok := tc.Cache.Get(key); ok {
		return raw, nil
	}
	value, err := fetch()
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, pierreerr.Wrap(pierreerr.KindInternal, "failed to encode provider response", err)
	}
	tc.Cache.Set(key, encoded, ttl)
	return encoded, nil
}

const defaultResourceTTL = 5 * time.Minute

// HandleAthleteGet implements athlete.get.
func HandleAthleteGet(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var p AthleteGetParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	userID, err := tc.userID()
	if err != nil {
		return nil, err
	}
	adapter, err := tc.Providers.Get(p.Provider)
	if err != nil {
		return nil, err
	}

	key := cache.Key{TenantID: tc.tenantID(), UserID: tc.Principal.UserID, Provider: p.Provider, Resource: "AthleteProfile"}
	encoded, err := cachedOrFetch(tc, key, defaultResourceTTL, func() (interface{}, error) {
		token, err := tc.Upstream.GetValidToken(ctx, userID, p.Provider)
		if err != nil {
			return nil, err
		}
		athlete, err := adapter.GetAthlete(ctx, token)
		if err != nil {
			return nil, pierreerr.Wrap(pierreerr.KindProviderUnavailable, "fetching athlete profile failed", err)
		}
		return athlete, nil
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(encoded), nil
}

// HandleActivitiesList implements activities.list.
func HandleActivitiesList(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var p ActivitiesListParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	userID, err := tc.userID()
	if err != nil {
		return nil, err
	}
	adapter, err := tc.Providers.Get(p.Provider)
	if err != nil {
		return nil, err
	}

	page, perPage := p.normalized()
	resource := fmt.Sprintf("ActivityList:%d:%d", page, perPage)
	if p.Before != nil {
		resource += ":before=" + p.Before.Format(time.RFC3339)
	}
	if p.After != nil {
		resource += ":after=" + p.After.Format(time.RFC3339)
	}

	key := cache.Key{TenantID: tc.tenantID(), UserID: tc.Principal.UserID, Provider: p.Provider, Resource: resource}
	encoded, err := cachedOrFetch(tc, key, defaultResourceTTL, func() (interface{}, error) {
		token, err := tc.Upstream.GetValidToken(ctx, userID, p.Provider)
		if err != nil {
			return nil, err
		}
		activities, err := adapter.GetActivities(ctx, token, provider.ActivityListParams{
			Page: page, PerPage: perPage, Before: p.Before, After: p.After,
		})
		if err != nil {
			return nil, pierreerr.Wrap(pierreerr.KindProviderUnavailable, "fetching activities failed", err)
		}
		return activities, nil
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(encoded), nil
}

// HandleActivitiesGet implements activities.get.
func HandleActivitiesGet(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var p ActivityGetParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	userID, err := tc.userID()
	if err != nil {
		return nil, err
	}
	adapter, err := tc.Providers.Get(p.Provider)
	if err != nil {
		return nil, err
	}

	key := cache.Key{TenantID: tc.tenantID(), UserID: tc.Principal.UserID, Provider: p.Provider, Resource: "Activity:" + p.ActivityID}
	encoded, err := cachedOrFetch(tc, key, defaultResourceTTL, func() (interface{}, error) {
		token, err := tc.Upstream.GetValidToken(ctx, userID, p.Provider)
		if err != nil {
			return nil, err
		}
		activity, err := adapter.GetActivity(ctx, token, p.ActivityID)
		if err != nil {
			return nil, pierreerr.Wrap(pierreerr.KindProviderUnavailable, "fetching activity failed", err)
		}
		return activity, nil
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(encoded), nil
}

// HandleActivitiesStats implements activities.stats.
func HandleActivitiesStats(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var p ActivitiesStatsParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	userID, err := tc.userID()
	if err != nil {
		return nil, err
	}
	adapter, err := tc.Providers.Get(p.Provider)
	if err != nil {
		return nil, err
	}

	key := cache.Key{TenantID: tc.tenantID(), UserID: tc.Principal.UserID, Provider: p.Provider, Resource: "Stats:" + p.AthleteID}
	encoded, err := cachedOrFetch(tc, key, defaultResourceTTL, func() (interface{}, error) {
		token, err := tc.Upstream.GetValidToken(ctx, userID, p.Provider)
		if err != nil {
			return nil, err
		}
		stats, err := adapter.GetStats(ctx, token, p.AthleteID)
		if err != nil {
			return nil, pierreerr.Wrap(pierreerr.KindProviderUnavailable, "fetching stats failed", err)
		}
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(encoded), nil
}

// HandleSleepListSessions implements sleep.list_sessions.
func HandleSleepListSessions(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var p SleepListParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	userID, err := tc.userID()
	if err != nil {
		return nil, err
	}
	adapter, err := tc.Providers.Get(p.Provider)
	if err != nil {
		return nil, err
	}

	page, perPage := p.normalized()
	resource := fmt.Sprintf("SleepSessions:%d:%d", page, perPage)
	key := cache.Key{TenantID: tc.tenantID(), UserID: tc.Principal.UserID, Provider: p.Provider, Resource: resource}
	encoded, err := cachedOrFetch(tc, key, defaultResourceTTL, func() (interface{}, error) {
		token, err := tc.Upstream.GetValidToken(ctx, userID, p.Provider)
		if err != nil {
			return nil, err
		}
		sessions, err := adapter.GetSleepSessions(ctx, token, provider.ActivityListParams{Page: page, PerPage: perPage})
		if err != nil {
			return nil, pierreerr.Wrap(pierreerr.KindProviderUnavailable, "fetching sleep sessions failed", err)
		}
		return sessions, nil
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(encoded), nil
}

// HandleInsightsTrainingLoad implements insights.training_load, the one
// tool that dispatches to the (external) intelligence engine rather than
// a provider adapter directly.
func HandleInsightsTrainingLoad(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
	var p TrainingLoadParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if tc.Intelligence == nil {
		return nil, pierreerr.New(pierreerr.KindInternal, "training-load insight engine is not configured for this deployment")
	}
	userID, err := tc.userID()
	if err != nil {
		return nil, err
	}
	adapter, err := tc.Providers.Get(p.Provider)
	if err != nil {
		return nil, err
	}

	token, err := tc.Upstream.GetValidToken(ctx, userID, p.Provider)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	since := now.AddDate(0, 0, -p.windowDays())
	activities, err := adapter.GetActivities(ctx, token, provider.ActivityListParams{Page: 1, PerPage: 200, After: &since})
	if err != nil {
		return nil, pierreerr.Wrap(pierreerr.KindProviderUnavailable, "fetching activities for training load failed", err)
	}

	load, err := tc.Intelligence.TrainingLoad(ctx, p.AthleteID, activities)
	if err != nil {
		return nil, pierreerr.Wrap(pierreerr.KindInternal, "training load computation failed", err)
	}
	return load, nil
}
