package agent

import "errors"

// Sentinel errors for agent construction.
var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingAPIKey   = errors.New("missing api key")
	ErrInvalidTimeout  = errors.New("invalid timeout")
)
