package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

func TestRegistry_Call_MCPContentFormat(t *testing.T) {
	// Test that Registry.Call wraps handler results in MCP content format
	registry := NewRegistry()

	// Register a simple test tool
	registry.MustRegister(ToolDefinition{
		Name:        "test.echo",
		Description: "Echo test tool",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, func(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
		// Return a simple object
		return map[string]any{
			"message": "hello world",
			"count":   42,
		}, nil
	})

	// Call the tool
	result, err := registry.Call(context.Background(), nil, CallRequest{
		Name:      "test.echo",
		Arguments: json.RawMessage(`{}`),
	})

	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	// Verify result is wrapped in CallResult format
	callResult, ok := result.(CallResult)
	if !ok {
		t.Fatalf("Expected CallResult, got %T", result)
	}

	// Verify content structure
	if len(callResult.Content) != 1 {
		t.Fatalf("Expected 1 content block, got %d", len(callResult.Content))
	}

	contentBlock := callResult.Content[0]
	if contentBlock.Type != "text" {
		t.Errorf("Expected content type 'text', got '%s'", contentBlock.Type)
	}

	// Verify the text is valid JSON
	var decoded map[string]any
	if err := json.Unmarshal([]byte(contentBlock.Text), &decoded); err != nil {
		t.Fatalf("Content text is not valid JSON: %v", err)
	}

	// Verify the original data is intact
	if decoded["message"] != "hello world" {
		t.Errorf("Expected message 'hello world', got '%v'", decoded["message"])
	}

	// JSON numbers are decoded as float64
	if count, ok := decoded["count"].(float64); !ok || count != 42 {
		t.Errorf("Expected count 42, got %v", decoded["count"])
	}

	// Verify IsError is false
	if callResult.IsError {
		t.Error("Expected IsError to be false")
	}
}

func TestRegistry_Call_ToolNotFound(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Call(context.Background(), nil, CallRequest{
		Name:      "nonexistent.tool",
		Arguments: json.RawMessage(`{}`),
	})

	if err == nil {
		t.Fatal("Expected error for nonexistent tool")
	}

	pe, ok := pierreerr.As(err)
	if !ok {
		t.Fatalf("Expected *pierreerr.Error, got %T", err)
	}

	if pe.Kind != pierreerr.KindUnknownTool {
		t.Errorf("Expected KindUnknownTool, got %s", pe.Kind)
	}
}

func TestRegistry_Call_HandlerError(t *testing.T) {
	// A failure raised during handler execution is a domain-level problem
	// and is folded into CallResult{IsError: true} rather than propagated
	// as a Go error, per spec §4.8's {content, isError} contract.
	registry := NewRegistry()

	registry.MustRegister(ToolDefinition{
		Name:        "test.fail",
		Description: "Failing test tool",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, func(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
		return nil, pierreerr.New(pierreerr.KindInvalidRequest, "invalid input: field test")
	})

	result, err := registry.Call(context.Background(), nil, CallRequest{
		Name:      "test.fail",
		Arguments: json.RawMessage(`{}`),
	})

	if err != nil {
		t.Fatalf("Expected handler errors to be folded into CallResult, got transport error: %v", err)
	}

	callResult, ok := result.(CallResult)
	if !ok {
		t.Fatalf("Expected CallResult, got %T", result)
	}
	if !callResult.IsError {
		t.Error("Expected IsError to be true")
	}
	if len(callResult.Content) != 1 || callResult.Content[0].Text == "" {
		t.Fatalf("Expected one text content block describing the failure, got %+v", callResult.Content)
	}
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry()

	// Register multiple tools
	registry.MustRegister(ToolDefinition{
		Name:        "test.one",
		Description: "First test tool",
		InputSchema: map[string]any{"type": "object"},
	}, func(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	registry.MustRegister(ToolDefinition{
		Name:        "test.two",
		Description: "Second test tool",
		InputSchema: map[string]any{"type": "object"},
	}, func(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	descriptors := registry.List()

	if len(descriptors) != 2 {
		t.Fatalf("Expected 2 tools, got %d", len(descriptors))
	}

	// Verify order is preserved
	if descriptors[0].Name != "test.one" {
		t.Errorf("Expected first tool to be 'test.one', got '%s'", descriptors[0].Name)
	}

	if descriptors[1].Name != "test.two" {
		t.Errorf("Expected second tool to be 'test.two', got '%s'", descriptors[1].Name)
	}

	// Verify structure
	if descriptors[0].Description != "First test tool" {
		t.Errorf("Expected description 'First test tool', got '%s'", descriptors[0].Description)
	}

	if descriptors[0].InputSchema == nil {
		t.Error("Expected InputSchema to be present")
	}
}

func TestRegistry_Register_DuplicateName(t *testing.T) {
	registry := NewRegistry()

	dummyHandler := func(ctx context.Context, tc *ToolContext, raw json.RawMessage) (interface{}, error) {
		return nil, nil
	}

	err := registry.Register(ToolDefinition{
		Name:        "test.tool",
		Description: "Test tool",
		InputSchema: map[string]any{"type": "object"},
	}, dummyHandler)

	if err != nil {
		t.Fatalf("First registration failed: %v", err)
	}

	// Try to register same name again
	err = registry.Register(ToolDefinition{
		Name:        "test.tool",
		Description: "Duplicate tool",
		InputSchema: map[string]any{"type": "object"},
	}, dummyHandler)

	if err == nil {
		t.Fatal("Expected error for duplicate registration")
	}
}
