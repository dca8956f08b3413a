package toolcatalog

// DefaultEntries is the built-in, immutable-at-runtime tool catalog
// (spec §9: provider adapters implement name/is_authenticated/
// get_activities/get_athlete/get_sleep_sessions). Ordering here becomes
// the ordering of tools/list responses.
func DefaultEntries() []Entry {
	return []Entry{
		{
			ToolName:    "provider.connect",
			DisplayName: "Connect Provider",
			Category:    "auth",
			MinPlan:     PlanStarter,
			Annotations: Annotations{ReadOnly: false, OpenWorld: true},
		},
		{
			ToolName:    "provider.disconnect",
			DisplayName: "Disconnect Provider",
			Category:    "auth",
			MinPlan:     PlanStarter,
			Annotations: Annotations{ReadOnly: false, Destructive: true, Idempotent: true},
		},
		{
			ToolName:    "provider.is_authenticated",
			DisplayName: "Check Provider Connection",
			Category:    "auth",
			MinPlan:     PlanStarter,
			Annotations: Annotations{ReadOnly: true, Idempotent: true},
		},
		{
			ToolName:    "athlete.get",
			DisplayName: "Get Athlete Profile",
			Category:    "profile",
			MinPlan:     PlanStarter,
			Annotations: Annotations{ReadOnly: true, Idempotent: true, OpenWorld: true},
		},
		{
			ToolName:    "activities.list",
			DisplayName: "List Activities",
			Category:    "activities",
			MinPlan:     PlanStarter,
			Annotations: Annotations{ReadOnly: true, Idempotent: true, OpenWorld: true},
		},
		{
			ToolName:    "activities.get",
			DisplayName: "Get Activity Detail",
			Category:    "activities",
			MinPlan:     PlanStarter,
			Annotations: Annotations{ReadOnly: true, Idempotent: true, OpenWorld: true},
		},
		{
			ToolName:    "activities.stats",
			DisplayName: "Athlete Activity Stats",
			Category:    "activities",
			MinPlan:     PlanProfessional,
			Annotations: Annotations{ReadOnly: true, Idempotent: true, OpenWorld: true},
		},
		{
			ToolName:    "sleep.list_sessions",
			DisplayName: "List Sleep Sessions",
			Category:    "sleep",
			MinPlan:     PlanProfessional,
			Annotations: Annotations{ReadOnly: true, Idempotent: true, OpenWorld: true},
		},
		{
			ToolName:    "insights.training_load",
			DisplayName: "Training Load Insight",
			Category:    "insights",
			MinPlan:     PlanEnterprise,
			Annotations: Annotations{ReadOnly: true, Idempotent: true},
		},
	}
}
