package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// Registry manages tool definitions and dispatches tool calls
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*toolEntry
	ordering []string // Preserve registration order for consistent tools/list
}

type toolEntry struct {
	def     ToolDefinition
	handler Handler
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*toolEntry),
	}
}

// Register adds a tool definition and handler to the registry
func (r *Registry) Register(def ToolDefinition, handler Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Name)
	}

	r.tools[def.Name] = &toolEntry{
		def:     def,
		handler: handler,
	}
	r.ordering = append(r.ordering, def.Name)

	return nil
}

// MustRegister registers a tool or panics on error (for init-time registration)
func (r *Registry) MustRegister(def ToolDefinition, handler Handler) {
	if err := r.Register(def, handler); err != nil {
		panic(err)
	}
}

// List returns all registered tool descriptors (for tools/list response)
func (r *Registry) List() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptors := make([]ToolDescriptor, 0, len(r.ordering))
	for _, name := range r.ordering {
		entry := r.tools[name]
		descriptors = append(descriptors, ToolDescriptor{
			Name:        entry.def.Name,
			Description: entry.def.Description,
			InputSchema: entry.def.InputSchema,
		})
	}

	return descriptors
}

// Call executes a tool by name with the given parameters.
//
// A lookup failure (unknown tool name) is a protocol-level problem and is
// returned as an error so the dispatcher maps it to a JSON-RPC error
// (-32602 Invalid params). A failure during handler execution (bad credentials,
// provider outage, invalid arguments) is a domain-level problem the
// calling agent should see and can react to, so it is folded into the
// CallResult as isError:true content instead of propagating as a
// transport error, per spec §4.8's {content, isError} contract.
func (r *Registry) Call(ctx context.Context, toolCtx *ToolContext, req CallRequest) (interface{}, error) {
	r.mu.RLock()
	entry, exists := r.tools[req.Name]
	r.mu.RUnlock()

	if !exists {
		return nil, pierreerr.New(pierreerr.KindUnknownTool, fmt.Sprintf("tool not found: %s", req.Name))
	}

	result, err := entry.handler(ctx, toolCtx, req.Arguments)
	if err != nil {
		message := err.Error()
		if pe, ok := pierreerr.As(err); ok {
			message = pe.Message
		}
		return CallResult{
			Content: []ContentBlock{{Type: "text", Text: message}},
			IsError: true,
		}, nil
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, pierreerr.Wrap(pierreerr.KindInternal, "failed to serialize tool result", err)
	}

	return CallResult{
		Content: []ContentBlock{
			{
				Type: "text",
				Text: string(resultJSON),
			},
		},
		IsError: false,
	}, nil
}

// Get retrieves a tool definition by name (for testing)
func (r *Registry) Get(name string) (*ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.tools[name]
	if !exists {
		return nil, false
	}

	return &entry.def, true
}
