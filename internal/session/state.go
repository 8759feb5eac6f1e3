package session

// State is a step in the life of a session. A session only moves forward
// through the states.
type State int32

const (
	Connecting State = iota
	Active
	Disconnecting
	Gone
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Disconnecting:
		return "disconnecting"
	case Gone:
		return "gone"
	default:
		return "unknown"
	}
}
