// internal/relay/state.go
package relay

// ConnState is the sink connection state as seen by the relay worker.
type ConnState int32

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// ConnEvent drives ConnState transitions.
type ConnEvent int

const (
	EventDial       ConnEvent = iota // worker starts a connect attempt
	EventDialOK                      // connect attempt succeeded
	EventDialFailed                  // connect attempt failed
	EventSendFailed                  // transmit failed, connection discarded
	EventLost                        // sink reports the connection is gone
	EventClosed                      // worker shut down
)

func (e ConnEvent) String() string {
	switch e {
	case EventDial:
		return "dial"
	case EventDialOK:
		return "dial_ok"
	case EventDialFailed:
		return "dial_failed"
	case EventSendFailed:
		return "send_failed"
	case EventLost:
		return "lost"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Next returns the state reached from s on ev. Invalid transitions leave
// the state unchanged and report false.
func Next(s ConnState, ev ConnEvent) (ConnState, bool) {
	if ev == EventClosed {
		return Disconnected, true
	}

	switch s {
	case Disconnected:
		if ev == EventDial {
			return Connecting, true
		}
	case Connecting:
		switch ev {
		case EventDialOK:
			return Connected, true
		case EventDialFailed:
			return Disconnected, true
		}
	case Connected:
		switch ev {
		case EventSendFailed, EventLost:
			return Disconnected, true
		}
	}
	return s, false
}
