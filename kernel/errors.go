package kernel

import "errors"

// Sentinel errors returned by the kernel entry points.
var (
	// ErrMaxIterations is returned when the loop exhausts its iteration
	// budget without the agent producing a final response.
	ErrMaxIterations = errors.New("max iterations reached")

	// ErrModelUnavailable wraps provider failures and empty model replies.
	// The session is left untouched, so the call is safe to retry.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrSuspensionPending is returned by SendMessage while the session has
	// a live suspension awaiting a decision.
	ErrSuspensionPending = errors.New("session has a pending suspension")

	ErrEmptySessionID = errors.New("session id is empty")
)
