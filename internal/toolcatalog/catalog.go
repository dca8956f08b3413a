// Package toolcatalog implements the Tool Catalog & Selection component
// (C6): a static, immutable-at-runtime list of tools plus a per-tenant
// resolution engine applying the precedence rules from spec §4.6.
// Grounded on the teacher's tool registry ordered-map shape
// (internal/mcpserver/tools/registry.go) and the admin-route response
// shapes in original_source's tool_selection.rs.
package toolcatalog

// Plan is the tenant subscription tier; order matters for the min-plan gate.
type Plan string

const (
	PlanStarter      Plan = "Starter"
	PlanProfessional Plan = "Professional"
	PlanEnterprise   Plan = "Enterprise"
)

var planRank = map[Plan]int{
	PlanStarter:      0,
	PlanProfessional: 1,
	PlanEnterprise:   2,
}

func (p Plan) atLeast(min Plan) bool {
	return planRank[p] >= planRank[min]
}

// Annotations mirror the ToolCatalogEntry annotation bundle from spec §3.
type Annotations struct {
	ReadOnly    bool
	Destructive bool
	Idempotent  bool
	OpenWorld   bool
}

// Entry is one static ToolCatalogEntry.
type Entry struct {
	ToolName    string
	DisplayName string
	Category    string
	MinPlan     Plan
	Annotations Annotations
}

// Source names which precedence rule decided a tool's enabled state.
type Source string

const (
	SourceGlobalDisabled Source = "GlobalDisabled"
	SourceTenantOverride Source = "TenantOverride"
	SourcePlanRestricted Source = "PlanRestricted"
	SourceDefault        Source = "Default"
)

// Resolved is one tool's resolved state for a given tenant.
type Resolved struct {
	Tool       Entry
	IsEnabled  bool
	Source     Source
}

// AvailabilitySummary is the §4.6 get_availability_summary shape.
type AvailabilitySummary struct {
	Total         int
	Enabled       int
	Overridden    int
	PlanRestricted int
	ByCategory    map[string]int
}

// Catalog is the immutable, built-in list of every tool the server exposes.
type Catalog struct {
	entries []Entry
	byName  map[string]Entry
}

// NewCatalog builds a Catalog from entries, in the given order (the order
// is preserved for get_effective_tools / get_enabled_tools responses,
// mirroring the teacher registry's ordering slice).
func NewCatalog(entries []Entry) *Catalog {
	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[e.ToolName] = e
	}
	return &Catalog{entries: entries, byName: byName}
}

func (c *Catalog) Lookup(toolName string) (Entry, bool) {
	e, ok := c.byName[toolName]
	return e, ok
}

func (c *Catalog) All() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}
