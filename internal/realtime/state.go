package realtime

// State is the connection lifecycle state. It is owned exclusively by
// the Client; consumers observe it through IsConnected and the
// diagnostic hooks, never mutate it.
type State int

const (
	// StateDisconnected is the initial state, and the terminal state
	// once the reconnect budget is exhausted or Disconnect is called.
	StateDisconnected State = iota
	// StateConnecting means the initial dial is in flight.
	StateConnecting
	// StateConnected means the transport acknowledged the channel.
	StateConnected
	// StateReconnecting means the transport dropped and recovery is in
	// progress.
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
