package filter

import "fmt"

// State is a step of a Stage.
type State int

const (
	StateIdle State = iota
	StateStreamReceived
	StateDecoded
	StateTranslated
	StateFilterInstalled
	StateExecuted
	StateResponseBuilt
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreamReceived:
		return "stream_received"
	case StateDecoded:
		return "decoded"
	case StateTranslated:
		return "translated"
	case StateFilterInstalled:
		return "filter_installed"
	case StateExecuted:
		return "executed"
	case StateResponseBuilt:
		return "response_built"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// next reports whether to may follow s.
func (s State) next(to State) bool {
	if to == StateFailed {
		return s != StateFailed && s != StateResponseBuilt
	}
	return to == s+1 && s < StateResponseBuilt
}
