package protocol

// State is the lifecycle state of an Engine.
type State int32

const (
	// StateDisconnected is the initial state; no process is running.
	StateDisconnected State = iota
	// StateConnecting covers process startup and the initialize handshake.
	StateConnecting
	// StateReady accepts calls.
	StateReady
	// StateClosed is terminal.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
