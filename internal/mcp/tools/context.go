package tools

import (
	"github.com/rs/zerolog"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/cache"
	"github.com/pierre-fitness/pierre-core/internal/intelligence"
	"github.com/pierre-fitness/pierre-core/internal/oauth2broker"
	"github.com/pierre-fitness/pierre-core/internal/provider"
)

// ToolContext provides a tool handler everything it needs to serve one
// call: the authenticated principal, the upstream token broker, the
// registered provider adapters, the optional intelligence engine, and
// the response cache. Grounded on the teacher's ToolContext shape
// (internal/mcpserver/tools/context.go), regeneralized from per-entity
// REST clients to fitness-provider adapters.
type ToolContext struct {
	Logger       *zerolog.Logger
	Principal    auth.Principal
	Upstream     *oauth2broker.Upstream
	Providers    *provider.Registry
	Intelligence intelligence.Engine
	Cache        *cache.Cache
}

func NewToolContext(logger *zerolog.Logger, principal auth.Principal, upstream *oauth2broker.Upstream, providers *provider.Registry, engine intelligence.Engine, c *cache.Cache) *ToolContext {
	return &ToolContext{
		Logger:       logger,
		Principal:    principal,
		Upstream:     upstream,
		Providers:    providers,
		Intelligence: engine,
		Cache:        c,
	}
}
