package realtime

import "fmt"

type StateKind int

const (
	StateDisconnected StateKind = iota
	StateConnecting
	StateConnected
	StateBackoff
)

// State is the connection state of a bridge. Attempt counts consecutive
// failures and is only meaningful in StateBackoff and StateConnecting.
type State struct {
	Kind    StateKind
	Attempt int
}

func (s State) String() string {
	switch s.Kind {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return fmt.Sprintf("backoff(%d)", s.Attempt)
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
