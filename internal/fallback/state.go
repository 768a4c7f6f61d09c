package fallback

// State is a step of the bounce-clear state machine.
type State int

const (
	Idle State = iota
	BounceCheck
	BounceClearSubmitted
	Verified
	Exhausted
)

func (s State) String() string {
	switch s {
	case BounceCheck:
		return "bounce-check"
	case BounceClearSubmitted:
		return "bounce-clear-submitted"
	case Verified:
		return "verified"
	case Exhausted:
		return "exhausted"
	default:
		return "idle"
	}
}

// Terminal reports whether the state ends the machine.
func (s State) Terminal() bool {
	return s == Verified || s == Exhausted
}

// Outcome is the final result for one address.
type Outcome struct {
	Key     string
	Address string
	State   State
	// Attempts counts bounce checks performed.
	Attempts int
	// BounceFound is set when any check saw bounce disablement.
	BounceFound bool
	// Reason explains an Exhausted outcome.
	Reason string
	// Err is the last request error, if any.
	Err error
}

// Unblocked reports whether the address ended clear.
func (o Outcome) Unblocked() bool {
	return o.State == Verified
}
