package otp

// State is the position of an authentication attempt in the challenge protocol.
type State int

const (
	StateAwaitingChallenge State = iota
	StateChallengeIssued
	StateAuthenticated
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateAwaitingChallenge:
		return "AWAITING_CHALLENGE"
	case StateChallengeIssued:
		return "CHALLENGE_ISSUED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further challenge round follows for the attempt.
func (s State) IsTerminal() bool {
	return s == StateAuthenticated || s == StateRejected
}
