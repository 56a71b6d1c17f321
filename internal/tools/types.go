// Package tools defines the tool surface exposed over the wire: a tool is a
// name, a JSON argument schema, and an execute function returning text.
// Tools live in a thread-safe registry keyed by name.
package tools

import (
	"context"
)

// Category groups tools by what they operate on.
type Category string

const (
	CategoryBuild     Category = "build"
	CategoryRun       Category = "run"
	CategoryTest      Category = "test"
	CategoryInspect   Category = "inspect"
	CategorySimulator Category = "simulator"
	CategoryDebug     Category = "debug"
)

// Property describes a single parameter for the JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array").
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// Schema defines the JSON schema for tool arguments.
type Schema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc runs the tool and returns its text response.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is one callable operation.
type Tool struct {
	// Name is the unique wire identifier.
	Name string

	// Description is the caller-facing explanation of what the tool does
	// and how to use its parameters.
	Description string

	// Category classifies the tool.
	Category Category

	// Schema defines the expected arguments.
	Schema Schema

	// Execute runs the tool.
	Execute ExecuteFunc
}

// Validate checks that the tool definition is complete.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// Result wraps one execution with metadata.
type Result struct {
	ToolName   string
	Output     string
	Err        error
	DurationMs int64
}

// IsSuccess reports whether execution completed without error.
func (r *Result) IsSuccess() bool {
	return r.Err == nil
}
