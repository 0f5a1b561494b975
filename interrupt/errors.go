package interrupt

import (
	"errors"

	"github.com/tailored-agentic-units/tradedesk/session"
)

// Sentinel errors for suspension and resume.
var (
	// ErrConcurrentSuspension is returned when a second suspension would be
	// opened while one is still pending, either in the same session or in the
	// same tool call. It shares identity with session.ErrSuspensionExists.
	ErrConcurrentSuspension = session.ErrSuspensionExists

	ErrNoPendingSuspension = errors.New("no pending suspension")
	ErrDecisionMismatch    = errors.New("decision does not target the pending suspension")
	ErrSuspensionExpired   = errors.New("suspension expired")
	ErrPromptMismatch      = errors.New("resumed call produced a different prompt")
	ErrInvalidTTL          = errors.New("invalid suspension ttl")
)
