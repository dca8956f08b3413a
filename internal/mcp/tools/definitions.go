package tools

// RegisterFitnessTools wires every tool named in toolcatalog.DefaultEntries
// into registry, binding each catalog entry's name to its concrete
// parameter schema and handler. Grounded on the teacher's
// registerNotesTools/registerTasksTools per-domain registration shape
// (internal/mcpserver/tools/definitions.go), regeneralized from CRUD
// entities to the fitness provider/activity/insight domain.
func RegisterFitnessTools(registry *Registry) {
	providerSchema := BuildSchema(map[string]any{
		"provider": EnumSchema("Upstream fitness provider", []string{"strava", "fitbit"}),
	}, []string{"provider"})

	registry.MustRegister(ToolDefinition{
		Name:        "provider.connect",
		Description: "Generate an OAuth2 authorization URL for the caller to connect a fitness provider account.",
		InputSchema: providerSchema,
	}, HandleProviderConnect)

	registry.MustRegister(ToolDefinition{
		Name:        "provider.disconnect",
		Description: "Revoke and delete the caller's stored token for a fitness provider.",
		InputSchema: providerSchema,
	}, HandleProviderDisconnect)

	registry.MustRegister(ToolDefinition{
		Name:        "provider.is_authenticated",
		Description: "Check whether the caller has a stored, usable token for a fitness provider.",
		InputSchema: providerSchema,
	}, HandleProviderIsAuthenticated)

	registry.MustRegister(ToolDefinition{
		Name:        "athlete.get",
		Description: "Fetch the caller's athlete profile from a connected fitness provider.",
		InputSchema: providerSchema,
	}, HandleAthleteGet)

	zero := 0
	max200 := 200
	registry.MustRegister(ToolDefinition{
		Name:        "activities.list",
		Description: "List the caller's recent activities from a connected fitness provider.",
		InputSchema: BuildSchema(map[string]any{
			"provider": EnumSchema("Upstream fitness provider", []string{"strava", "fitbit"}),
			"page":     IntegerSchema("1-based page number", &zero, nil),
			"per_page": IntegerSchema("Results per page (0-200, default 30)", &zero, &max200),
			"before":   StringSchema("RFC3339 timestamp; only activities before this time"),
			"after":    StringSchema("RFC3339 timestamp; only activities after this time"),
		}, []string{"provider"}),
	}, HandleActivitiesList)

	registry.MustRegister(ToolDefinition{
		Name:        "activities.get",
		Description: "Fetch a single activity's detail from a connected fitness provider.",
		InputSchema: BuildSchema(map[string]any{
			"provider":    EnumSchema("Upstream fitness provider", []string{"strava", "fitbit"}),
			"activity_id": StringSchema("Provider-native activity identifier"),
		}, []string{"provider", "activity_id"}),
	}, HandleActivitiesGet)

	registry.MustRegister(ToolDefinition{
		Name:        "activities.stats",
		Description: "Fetch aggregate activity stats (recent/year-to-date/all-time totals) for an athlete.",
		InputSchema: BuildSchema(map[string]any{
			"provider":   EnumSchema("Upstream fitness provider", []string{"strava", "fitbit"}),
			"athlete_id": StringSchema("Provider-native athlete identifier"),
		}, []string{"provider", "athlete_id"}),
	}, HandleActivitiesStats)

	registry.MustRegister(ToolDefinition{
		Name:        "sleep.list_sessions",
		Description: "List the caller's recent sleep sessions from a connected fitness provider.",
		InputSchema: BuildSchema(map[string]any{
			"provider": EnumSchema("Upstream fitness provider", []string{"strava", "fitbit"}),
			"page":     IntegerSchema("1-based page number", &zero, nil),
			"per_page": IntegerSchema("Results per page (0-200, default 30)", &zero, &max200),
		}, []string{"provider"}),
	}, HandleSleepListSessions)

	max365 := 365
	registry.MustRegister(ToolDefinition{
		Name:        "insights.training_load",
		Description: "Compute chronic/acute training load and the acute:chronic ratio over a recent activity window.",
		InputSchema: BuildSchema(map[string]any{
			"provider":   EnumSchema("Upstream fitness provider", []string{"strava", "fitbit"}),
			"athlete_id": StringSchema("Provider-native athlete identifier"),
			"days":       IntegerSchema("Lookback window in days (0-365, default 42)", &zero, &max365),
		}, []string{"provider", "athlete_id"}),
	}, HandleInsightsTrainingLoad)
}
