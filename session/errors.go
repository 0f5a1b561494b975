package session

import (
	"errors"
	"fmt"
)

// Sentinel errors for session stores.
var (
	ErrEmptyID          = errors.New("session id is empty")
	ErrConflict         = errors.New("session history changed concurrently")
	ErrSuspensionExists = errors.New("session already has a pending suspension")
	ErrUnknownBackend   = errors.New("unknown session backend")
)

func conflict(id string, base, actual int) error {
	return fmt.Errorf("%w: %s: expected %d messages, found %d", ErrConflict, id, base, actual)
}

func suspensionExists(id, suspensionID string) error {
	return fmt.Errorf("%w: %s: %s", ErrSuspensionExists, id, suspensionID)
}
