package device

import "fmt"

// State is a step of the initialization procedure
type State int

const (
	StateIdle State = iota
	StateChainResolved
	StateMessageBuilt
	StateSigned
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateChainResolved:
		return "ChainResolved"
	case StateMessageBuilt:
		return "MessageBuilt"
	case StateSigned:
		return "Signed"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal returns true for Signed and Failed
func (s State) IsTerminal() bool {
	return s == StateSigned || s == StateFailed
}
