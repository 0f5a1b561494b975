package tools

import "errors"

// Sentinel errors for the tools registry.
var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrAlreadyExists    = errors.New("tool already registered")
	ErrEmptyName        = errors.New("tool name is empty")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrInvalidSchema    = errors.New("invalid parameter schema")
)
