// Command pierred is the pierre-core server process: it wires C1-C10
// together and serves the MCP/A2A/OAuth2/Admin HTTP surface on one
// listener, grounded on the teacher's cmd/server/main.go bootstrap shape
// (env-driven config, log.Fatal on misconfiguration, graceful shutdown on
// SIGINT/SIGTERM).
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pierre-fitness/pierre-core/internal/a2a"
	"github.com/pierre-fitness/pierre-core/internal/admin"
	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/cache"
	"github.com/pierre-fitness/pierre-core/internal/config"
	"github.com/pierre-fitness/pierre-core/internal/cryptoutil"
	"github.com/pierre-fitness/pierre-core/internal/httpapi"
	"github.com/pierre-fitness/pierre-core/internal/mcp"
	"github.com/pierre-fitness/pierre-core/internal/mcp/tools"
	"github.com/pierre-fitness/pierre-core/internal/oauth2broker"
	"github.com/pierre-fitness/pierre-core/internal/provider"
	"github.com/pierre-fitness/pierre-core/internal/ratelimit"
	"github.com/pierre-fitness/pierre-core/internal/store"
	"github.com/pierre-fitness/pierre-core/internal/toolcatalog"
	"github.com/pierre-fitness/pierre-core/internal/usage"
)

// usageSink adapts store.Store.InsertUsageRecords to usage.Sink, the thin
// wrapper usage.Sink's own doc comment calls for.
type usageSink struct{ st *store.Store }

func (s usageSink) Insert(ctx context.Context, records []usage.Record) error {
	rows := make([]store.UsageRecord, len(records))
	for i, r := range records {
		var errPtr, ipPtr, uaPtr *string
		if r.Error != "" {
			errPtr = &r.Error
		}
		if r.IP != "" {
			ipPtr = &r.IP
		}
		if r.UserAgent != "" {
			uaPtr = &r.UserAgent
		}
		rows[i] = store.UsageRecord{
			PrincipalID:   r.PrincipalID,
			PrincipalKind: r.PrincipalKind,
			ToolName:      r.ToolName,
			BytesIn:       r.BytesIn,
			BytesOut:      r.BytesOut,
			LatencyMs:     r.LatencyMs,
			StatusCode:    r.StatusCode,
			Error:         errPtr,
			IP:            ipPtr,
			UserAgent:     uaPtr,
			Timestamp:     r.Timestamp,
		}
	}
	return s.st.InsertUsageRecords(ctx, rows)
}

func main() {
	configPath := flag.String("config", "", "path to an optional JSON config file")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "pierre-core").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if lvl, err := zerolog.ParseLevel(cfg.Server.LogFilter); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.Server.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	pool, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	st := store.New(pool)

	masterKey, err := cfg.DecodeMasterKey()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid master encryption key")
	}
	aead, err := cryptoutil.NewAEAD(masterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize AEAD cipher")
	}

	keys, err := auth.NewKeyManager(7 * 24 * time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize signing keys")
	}

	apiKeys := store.ApiKeyAuthVerifier{Store: st}
	adminTokens := store.AdminTokenAuthVerifier{Store: st}

	c := cache.New(cache.Config{
		MaxEntries:    cfg.Cache.MaxEntries,
		SweepInterval: cfg.CacheSweepInterval(),
	})
	defer c.Close()

	catalog := toolcatalog.NewCatalog(toolcatalog.DefaultEntries())
	selector := toolcatalog.NewSelector(catalog, store.TenantPlanLookup{Store: st}, store.ToolOverrideStore{Store: st}, cfg.Tools.DisabledTools)

	recorder := usage.New(usageSink{st: st}, usage.Config{
		BufferSize:    10_000,
		BatchSize:     200,
		FlushInterval: 5 * time.Second,
	})
	defer recorder.Close()

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		WindowSeconds: 60,
		MaxRequests:   600,
		Burst:         60,
	})
	defer limiter.Close()

	upstream := oauth2broker.NewUpstream(st, aead, &http.Client{Timeout: 15 * time.Second})
	broker := oauth2broker.NewServerBroker(st, cfg.SessionTTL())
	providers := provider.NewRegistry()

	registry := tools.NewRegistry()
	tools.RegisterFitnessTools(registry)

	mcpServer := mcp.NewServer(mcp.Deps{
		KeyManager:          keys,
		ApiKeys:             apiKeys,
		AdminTokens:         adminTokens,
		Registry:            registry,
		Selector:            selector,
		Limiter:             limiter,
		Recorder:            recorder,
		Upstream:            upstream,
		Providers:           providers,
		Intelligence:        nil,
		Cache:               c,
		DevMode:             !cfg.Server.IsProduction(),
		SessionTTL:          cfg.SessionTTL(),
		MaxRequestBodyBytes: cfg.Server.MaxRequestBodyBytes,
	})
	defer mcpServer.Close()

	a2aDeps := a2a.Deps{
		Store:               st,
		Broker:              broker,
		Registry:            registry,
		Selector:            selector,
		Limiter:             limiter,
		Recorder:            recorder,
		Upstream:            upstream,
		Providers:           providers,
		Intelligence:        nil,
		Cache:               c,
		MaxRequestBodyBytes: cfg.Server.MaxRequestBodyBytes,
	}
	a2aServer := a2a.NewServer(a2aDeps)

	worker := a2a.NewWorker(a2aDeps, 2*time.Second, 20)
	go worker.Run()
	defer worker.Close()

	oauthDeps := oauth2broker.Deps{
		Broker:      broker,
		Upstream:    upstream,
		Store:       st,
		Keys:        keys,
		ApiKeys:     apiKeys,
		AdminTokens: adminTokens,
	}
	if cfg.RateLimit.OAuth2RegisterRPM > 0 {
		oauthDeps.RegisterLimiter = oauth2broker.NewIPLimiter(cfg.RateLimit.OAuth2RegisterRPM, time.Minute)
	}
	if cfg.RateLimit.OAuth2AuthorizeRPM > 0 {
		oauthDeps.AuthorizeLimiter = oauth2broker.NewIPLimiter(cfg.RateLimit.OAuth2AuthorizeRPM, time.Minute)
	}
	if cfg.RateLimit.OAuth2TokenRPM > 0 {
		oauthDeps.TokenLimiter = oauth2broker.NewIPLimiter(cfg.RateLimit.OAuth2TokenRPM, time.Minute)
	}
	oauthServer := oauth2broker.NewServer(oauthDeps)

	adminServer := admin.NewServer(admin.Deps{
		Store:       st,
		Keys:        keys,
		ApiKeys:     apiKeys,
		AdminTokens: adminTokens,
		Catalog:     catalog,
		Selector:    selector,
	})

	httpSrv := &httpapi.Server{
		MCP:        mcpServer,
		A2A:        a2aServer,
		OAuth2:     oauthServer,
		Admin:      adminServer,
		Production: cfg.Server.IsProduction(),
	}

	addr := ":" + strconv.Itoa(cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      httpSrv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
}
