// Package kernel implements the interruptible tool-calling loop that
// composes agent, tools, session and interrupt into conversations whose tool
// calls may pause for a human decision and resume later.
//
// The kernel initializes from configuration via New. Functional options
// supply subsystems directly; anything not supplied is created from config.
//
//	k, err := kernel.New(ctx, &cfg)
//	result, err := k.SendMessage(ctx, "thread-2", "buy 20 AAPL stock at current price.")
//	if result.State == kernel.StateSuspended {
//		result, err = k.Resume(ctx, "thread-2", "yes")
//	}
package kernel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/tradedesk/agent"
	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/core/response"
	"github.com/tailored-agentic-units/tradedesk/interrupt"
	"github.com/tailored-agentic-units/tradedesk/memory"
	"github.com/tailored-agentic-units/tradedesk/observability"
	"github.com/tailored-agentic-units/tradedesk/session"
	"github.com/tailored-agentic-units/tradedesk/tools"
	"github.com/tailored-agentic-units/tradedesk/tools/market"
)

// ExpiredResult is the tool result recorded for calls whose suspension
// expired before a decision arrived.
const ExpiredResult = "error: approval expired"

// Result holds the outcome of a SendMessage or Resume invocation.
type Result struct {
	SessionID  string
	State      State               // StateDone or StateSuspended.
	Response   string              // Final text response when State is StateDone.
	Prompt     string              // Approval prompt when State is StateSuspended.
	Suspension *session.Suspension // Pending suspension when State is StateSuspended.
	Iterations int                 // Number of model turns completed.
	ToolCalls  []ToolCallRecord    // Log of tool invocations in this run.
}

type ToolCallRecord struct {
	protocol.ToolCall
	Iteration int    // Loop cycle in which the call occurred.
	Result    string // Tool execution output.
	IsError   bool   // Whether execution returned an error.
	Suspended bool   // Whether the call suspended instead of completing.
}

// ToolExecutor abstracts tool listing and execution for testability.
// *tools.Registry satisfies it.
type ToolExecutor interface {
	List() []protocol.Tool
	Execute(ctx context.Context, name string, args json.RawMessage) (tools.Result, error)
}

// Option configures a Kernel. Options are applied before config-driven
// initialization; subsystems they supply are not created from config.
type Option func(*Kernel)

// WithAgent overrides the config-created agent.
func WithAgent(a agent.Agent) Option {
	return func(k *Kernel) { k.agent = a }
}

// WithStore overrides the config-created session store.
func WithStore(s session.Store) Option {
	return func(k *Kernel) { k.store = s }
}

// WithToolExecutor overrides the config-created tool registry.
func WithToolExecutor(e ToolExecutor) Option {
	return func(k *Kernel) { k.tools = e }
}

// WithMemoryStore overrides the config-created memory store.
func WithMemoryStore(s memory.Store) Option {
	return func(k *Kernel) { k.memory = s }
}

// WithGate overrides the config-created interrupt gate.
func WithGate(g *interrupt.Gate) Option {
	return func(k *Kernel) { k.gate = g }
}

// WithObserver overrides the config-selected observers.
func WithObserver(o observability.Observer) Option {
	return func(k *Kernel) { k.observer = o }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(k *Kernel) { k.tracer = t }
}

// Kernel is the runtime that executes the interruptible agentic loop.
// All methods are safe for concurrent use; calls on the same session are
// serialized.
type Kernel struct {
	agent         agent.Agent
	store         session.Store
	memory        memory.Store
	tools         ToolExecutor
	gate          *interrupt.Gate
	observer      observability.Observer
	tracer        trace.Tracer
	locks         *sessionLocks
	maxIterations int
	systemPrompt  string
}

// New creates a Kernel from configuration. Subsystems not supplied through
// options are initialized from their respective config sections.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Kernel, error) {
	k := &Kernel{
		locks:         newSessionLocks(),
		maxIterations: cfg.MaxIterations,
		systemPrompt:  cfg.SystemPrompt,
	}

	for _, opt := range opts {
		opt(k)
	}

	var err error

	if k.observer == nil {
		k.observer, err = observability.Observers(cfg.Observers...)
		if err != nil {
			return nil, fmt.Errorf("failed to create observer: %w", err)
		}
	}

	if k.tracer == nil {
		k.tracer = observability.Tracer()
	}

	if k.memory == nil {
		k.memory, err = memory.NewStore(&cfg.Memory)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory store: %w", err)
		}
	}

	if k.gate == nil {
		k.gate, err = interrupt.New(&cfg.Interrupt)
		if err != nil {
			return nil, fmt.Errorf("failed to create interrupt gate: %w", err)
		}
	}

	if k.tools == nil {
		reg := tools.NewRegistry()
		if err := market.Register(reg, &cfg.Market); err != nil {
			return nil, fmt.Errorf("failed to register market tools: %w", err)
		}
		k.tools = reg
	}

	if k.store == nil {
		sessionCfg := cfg.Session
		if sessionCfg.Backend == session.BackendFile && sessionCfg.Path == "" {
			sessionCfg.Path = cfg.Memory.Path
		}
		k.store, err = session.New(ctx, &sessionCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create session store: %w", err)
		}
	}

	if k.agent == nil {
		k.agent, err = agent.New(ctx, &cfg.Agent)
		if err != nil {
			return nil, fmt.Errorf("failed to create agent: %w", err)
		}
	}

	return k, nil
}

// Close releases the session store.
func (k *Kernel) Close(ctx context.Context) error {
	return k.store.Close(ctx)
}

// run is the state of one SendMessage or Resume invocation. Messages are
// staged and committed to the store once, when the run ends.
type run struct {
	id     string
	source string
	snap   *session.Snapshot
	staged []protocol.Message
	clear  bool
	system string
	result *Result
	state  State
	span   trace.Span
}

func (r *run) messages() []protocol.Message {
	messages := make([]protocol.Message, 0, len(r.snap.Messages)+len(r.staged)+1)
	if r.system != "" {
		messages = append(messages, protocol.NewMessage(protocol.RoleSystem, r.system))
	}
	messages = append(messages, r.snap.Messages...)
	return append(messages, r.staged...)
}

// SendMessage appends a user message to the session and runs the loop until
// the model answers or a tool suspends.
//
// Returns ErrSuspensionPending while a live suspension awaits a decision. An
// expired suspension is closed first: its calls receive ExpiredResult and
// the new message follows them.
func (k *Kernel) SendMessage(ctx context.Context, sessionID, text string) (*Result, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	unlock := k.locks.lock(sessionID)
	defer unlock()

	ctx, r, err := k.begin(ctx, "kernel.SendMessage", sessionID)
	if err != nil {
		return nil, k.finish(ctx, r, err)
	}

	if pending := r.snap.Suspension; pending != nil {
		if !k.gate.Expired(pending) {
			return nil, k.finish(ctx, r, fmt.Errorf("%w: %s: %s", ErrSuspensionPending, sessionID, pending.ID))
		}
		k.expire(ctx, r, pending)
	}

	r.staged = append(r.staged, protocol.NewMessage(protocol.RoleUser, text))

	k.emit(ctx, r, EventRunStart, observability.LevelInfo, map[string]any{
		"session_id":     sessionID,
		"history":        r.snap.Len(),
		"max_iterations": k.maxIterations,
		"tools":          len(k.tools.List()),
	})

	return k.loop(ctx, r)
}

// Resume delivers decision to the session's pending suspension and continues
// the run from the suspended call. Returns interrupt.ErrNoPendingSuspension,
// without touching the session, when nothing is pending.
func (k *Kernel) Resume(ctx context.Context, sessionID, decision string) (*Result, error) {
	return k.ResumeCall(ctx, sessionID, "", decision)
}

// ResumeCall is Resume addressed to a specific suspended call. A callID that
// does not match the pending suspension fails with
// interrupt.ErrDecisionMismatch.
func (k *Kernel) ResumeCall(ctx context.Context, sessionID, callID, decision string) (*Result, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	unlock := k.locks.lock(sessionID)
	defer unlock()

	ctx, r, err := k.begin(ctx, "kernel.Resume", sessionID)
	if err != nil {
		return nil, k.finish(ctx, r, err)
	}

	pending := r.snap.Suspension
	resumeCtx, d, err := k.gate.Bind(ctx, pending, callID, decision)
	if err != nil {
		return nil, k.finish(ctx, r, err)
	}

	r.clear = true
	k.emit(ctx, r, EventResume, observability.LevelInfo, map[string]any{
		"session_id":    sessionID,
		"suspension_id": d.SuspensionID,
		"call_id":       d.CallID,
		"approved":      d.Approved(),
	})

	calls := append([]protocol.ToolCall{pending.Call}, pending.Remaining...)
	suspension, err := k.execute(resumeCtx, r, calls, 0)
	if err != nil {
		return nil, k.finish(ctx, r, err)
	}
	if suspension != nil {
		return k.suspend(ctx, r, suspension)
	}

	return k.loop(ctx, r)
}

// History returns the committed messages of a session in order.
func (k *Kernel) History(ctx context.Context, sessionID string) ([]protocol.Message, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	snap, err := k.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return snap.Messages, nil
}

// Pending returns the session's suspension awaiting a decision, or nil.
// Expired suspensions are reported as nil.
func (k *Kernel) Pending(ctx context.Context, sessionID string) (*session.Suspension, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	snap, err := k.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if k.gate.Expired(snap.Suspension) {
		return nil, nil
	}
	return snap.Suspension, nil
}

func (k *Kernel) begin(ctx context.Context, source, sessionID string) (context.Context, *run, error) {
	ctx, span := k.tracer.Start(ctx, source, trace.WithAttributes(attribute.String("session.id", sessionID)))

	r := &run{
		id:     sessionID,
		source: source,
		result: &Result{SessionID: sessionID},
		state:  StateAwaitingModel,
		span:   span,
	}

	snap, err := k.store.Load(ctx, sessionID)
	if err != nil {
		return ctx, r, fmt.Errorf("failed to load session: %w", err)
	}
	r.snap = snap

	r.system, err = k.buildSystemContent(ctx)
	if err != nil {
		return ctx, r, err
	}

	return ctx, r, nil
}

// finish ends the run's span, recording err when non-nil.
func (k *Kernel) finish(ctx context.Context, r *run, err error) error {
	if err != nil {
		k.emit(ctx, r, EventError, observability.LevelError, map[string]any{
			"session_id": r.id,
			"error":      err,
		})
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	} else {
		k.emit(ctx, r, EventRunComplete, observability.LevelInfo, map[string]any{
			"session_id": r.id,
			"iterations": r.result.Iterations,
			"tool_calls": len(r.result.ToolCalls),
		})
	}
	r.span.End()
	return err
}

func (k *Kernel) loop(ctx context.Context, r *run) (*Result, error) {
	for iteration := 1; k.maxIterations == 0 || iteration <= k.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, k.finish(ctx, r, err)
		}

		r.state = StateAwaitingModel
		k.emit(ctx, r, EventIterationStart, observability.LevelVerbose, map[string]any{
			"iteration": iteration,
		})

		resp, err := k.agent.Tools(ctx, r.messages(), k.tools.List())
		if err != nil {
			return nil, k.finish(ctx, r, fmt.Errorf("%w: %w", ErrModelUnavailable, err))
		}

		reply, err := resp.Reply()
		if err != nil {
			return nil, k.finish(ctx, r, fmt.Errorf("%w: %w", ErrModelUnavailable, err))
		}
		r.result.Iterations = iteration

		switch reply := reply.(type) {
		case response.Answer:
			r.staged = append(r.staged, protocol.NewMessage(protocol.RoleAssistant, reply.Content))
			if err := k.commit(ctx, r, nil); err != nil {
				return nil, k.finish(ctx, r, err)
			}

			r.state = StateDone
			r.result.State = StateDone
			r.result.Response = reply.Content

			k.emit(ctx, r, EventResponse, observability.LevelInfo, map[string]any{
				"iteration":       iteration,
				"response_length": len(reply.Content),
			})
			return r.result, k.finish(ctx, r, nil)

		case response.ToolCalls:
			calls := make([]protocol.ToolCall, len(reply.Calls))
			for i, call := range reply.Calls {
				if call.ID == "" {
					call.ID = uuid.Must(uuid.NewV7()).String()
				}
				calls[i] = call
			}

			r.staged = append(r.staged, protocol.Message{
				Role:      protocol.RoleAssistant,
				Content:   reply.Content,
				ToolCalls: calls,
			})

			suspension, err := k.execute(ctx, r, calls, iteration)
			if err != nil {
				return nil, k.finish(ctx, r, err)
			}
			if suspension != nil {
				return k.suspend(ctx, r, suspension)
			}
		}
	}

	k.emit(ctx, r, EventError, observability.LevelWarning, map[string]any{
		"error":      "max iterations reached",
		"iterations": k.maxIterations,
	})

	if err := k.commit(ctx, r, nil); err != nil {
		return nil, k.finish(ctx, r, err)
	}
	return r.result, k.finish(ctx, r, ErrMaxIterations)
}

// execute runs calls in order, staging one tool message per completed call.
// When a call suspends, execution stops and the suspension carrying the
// unstarted calls is returned.
func (k *Kernel) execute(ctx context.Context, r *run, calls []protocol.ToolCall, iteration int) (*session.Suspension, error) {
	r.state = StateExecutingTool

	for i, tc := range calls {
		k.emit(ctx, r, EventToolCall, observability.LevelVerbose, map[string]any{
			"iteration": iteration,
			"name":      tc.Name,
			"call_id":   tc.ID,
		})

		record := ToolCallRecord{ToolCall: tc, Iteration: iteration}

		toolResult, toolErr := k.tools.Execute(
			interrupt.WithCall(ctx, tc.ID),
			tc.Name,
			json.RawMessage(tc.Arguments),
		)

		var intr *interrupt.Interrupt
		if errors.As(toolErr, &intr) && intr.CallID == tc.ID {
			suspension, err := k.gate.Open(r.pending(), intr, tc, calls[i+1:])
			if err != nil {
				return nil, err
			}
			record.Suspended = true
			record.Result = intr.Prompt
			r.result.ToolCalls = append(r.result.ToolCalls, record)
			return suspension, nil
		}

		if toolErr != nil {
			record.Result = fmt.Sprintf("error: %s", toolErr)
			record.IsError = true
		} else {
			record.Result = toolResult.Content
			record.IsError = toolResult.IsError
		}
		r.staged = append(r.staged, protocol.NewToolMessage(tc.ID, record.Result))

		k.emit(ctx, r, EventToolComplete, observability.LevelVerbose, map[string]any{
			"iteration": iteration,
			"name":      tc.Name,
			"call_id":   tc.ID,
			"error":     record.IsError,
		})

		r.result.ToolCalls = append(r.result.ToolCalls, record)
	}

	return nil, nil
}

// pending returns the suspension that will still be live when the run
// commits.
func (r *run) pending() *session.Suspension {
	if r.clear {
		return nil
	}
	return r.snap.Suspension
}

func (k *Kernel) suspend(ctx context.Context, r *run, s *session.Suspension) (*Result, error) {
	if err := k.commit(ctx, r, s); err != nil {
		return nil, k.finish(ctx, r, err)
	}

	r.state = StateSuspended
	r.result.State = StateSuspended
	r.result.Prompt = s.Prompt
	r.result.Suspension = s

	k.emit(ctx, r, EventSuspend, observability.LevelInfo, map[string]any{
		"session_id":    r.id,
		"suspension_id": s.ID,
		"call_id":       s.CallID,
		"name":          s.Call.Name,
		"remaining":     len(s.Remaining),
	})
	return r.result, k.finish(ctx, r, nil)
}

// expire closes a suspension whose decision never arrived: every call it
// held is answered with ExpiredResult.
func (k *Kernel) expire(ctx context.Context, r *run, s *session.Suspension) {
	r.clear = true
	r.staged = append(r.staged, protocol.NewToolMessage(s.Call.ID, ExpiredResult))
	for _, tc := range s.Remaining {
		r.staged = append(r.staged, protocol.NewToolMessage(tc.ID, ExpiredResult))
	}

	k.emit(ctx, r, EventSuspensionExpired, observability.LevelWarning, map[string]any{
		"session_id":    r.id,
		"suspension_id": s.ID,
		"call_id":       s.CallID,
		"expired_at":    s.ExpiresAt.String(),
	})
}

func (k *Kernel) commit(ctx context.Context, r *run, s *session.Suspension) error {
	err := k.store.Commit(ctx, r.id, session.Commit{
		Base:            r.snap.Len(),
		Messages:        r.staged,
		Suspension:      s,
		ClearSuspension: r.clear,
	})
	if err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

func (k *Kernel) emit(ctx context.Context, r *run, t observability.EventType, level observability.Level, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["state"] = r.state.String()
	k.observer.OnEvent(ctx, observability.NewEvent(t, level, r.source, data))
}

func (k *Kernel) buildSystemContent(ctx context.Context) (string, error) {
	notes, err := memory.LoadPrompt(ctx, k.memory)
	if err != nil {
		return "", fmt.Errorf("failed to load memory: %w", err)
	}

	parts := make([]string, 0, 2)
	if k.systemPrompt != "" {
		parts = append(parts, k.systemPrompt)
	}
	if notes != "" {
		parts = append(parts, notes)
	}
	return strings.Join(parts, "\n\n"), nil
}
