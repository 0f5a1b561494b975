package protocol

import "github.com/google/jsonschema-go/jsonschema"

// Tool defines a function that can be called by the LLM.
// This is the canonical tool definition type used across the kernel.
// Parameters is a JSON Schema object describing the function's input; the
// tools registry validates call arguments against it before dispatch.
type Tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}
