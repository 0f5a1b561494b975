package interrupt

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/session"
)

// Gate opens suspensions for interrupted calls and validates decisions
// against them. It holds no per-session state; the pending suspension lives
// in the session store and is passed in by the caller.
type Gate struct {
	ttl time.Duration
	now func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source used for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a Gate whose suspensions expire after ttl. A zero ttl
// disables expiry.
func NewGate(ttl time.Duration, opts ...Option) *Gate {
	g := &Gate{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// New creates a Gate from configuration.
func New(cfg *Config) (*Gate, error) {
	ttl, err := cfg.Duration()
	if err != nil {
		return nil, err
	}
	return NewGate(ttl), nil
}

// TTL returns the configured suspension lifetime.
func (g *Gate) TTL() time.Duration {
	return g.ttl
}

// Expired reports whether s has passed its deadline.
func (g *Gate) Expired(s *session.Suspension) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !g.now().Before(s.ExpiresAt)
}

// Open creates the suspension for call, interrupted by intr. remaining are the
// calls of the same model turn that have not started. pending is the
// session's current suspension; a live one fails with ErrConcurrentSuspension.
func (g *Gate) Open(pending *session.Suspension, intr *Interrupt, call protocol.ToolCall, remaining []protocol.ToolCall) (*session.Suspension, error) {
	if pending != nil && !g.Expired(pending) {
		return nil, fmt.Errorf("%w: %s", ErrConcurrentSuspension, pending.ID)
	}
	if intr.CallID != call.ID {
		return nil, fmt.Errorf("interrupt for call %s raised while executing %s", intr.CallID, call.ID)
	}

	now := g.now()
	s := &session.Suspension{
		ID:        uuid.Must(uuid.NewV7()).String(),
		CallID:    call.ID,
		Call:      call,
		Remaining: slices.Clone(remaining),
		Prompt:    intr.Prompt,
		CreatedAt: now,
	}
	if g.ttl > 0 {
		s.ExpiresAt = now.Add(g.ttl)
	}
	return s, nil
}

// Bind validates a decision for the pending suspension and returns a context
// that delivers it to the resumed call's Suspend. callID, when non-empty,
// must name the suspended call.
func (g *Gate) Bind(ctx context.Context, pending *session.Suspension, callID, value string) (context.Context, Decision, error) {
	if pending == nil {
		return ctx, Decision{}, ErrNoPendingSuspension
	}
	if g.Expired(pending) {
		return ctx, Decision{}, fmt.Errorf("%w: %s expired at %s", ErrSuspensionExpired, pending.ID, pending.ExpiresAt.Format(time.RFC3339))
	}
	if callID != "" && callID != pending.CallID {
		return ctx, Decision{}, fmt.Errorf("%w: got call %s, pending call is %s", ErrDecisionMismatch, callID, pending.CallID)
	}

	d := Decision{
		SuspensionID: pending.ID,
		CallID:       pending.CallID,
		Value:        value,
		DecidedAt:    g.now(),
	}
	slot := &resumeSlot{decision: d, prompt: pending.Prompt}
	return context.WithValue(ctx, resumeKey{}, slot), d, nil
}
