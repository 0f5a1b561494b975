package kernel

// State is the orchestrator's position within a session run.
//
// A run starts in StateAwaitingModel. A reply with tool calls moves it to
// StateExecutingTool, and from there back to StateAwaitingModel once every
// call has a result. A plain answer ends the run in StateDone. A tool that
// suspends ends it in StateSuspended until a decision resumes the call.
type State int

const (
	StateAwaitingModel State = iota
	StateExecutingTool
	StateSuspended
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTool:
		return "executing_tool"
	case StateSuspended:
		return "suspended"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
