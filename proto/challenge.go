package proto

import (
	"github.com/aws/aws-lambda-go/events"
)

// Challenge names presented by the user pool. The custom challenge is the one the triggers
// issue; the others only appear in session history.
const (
	ChallengeName_Custom           = "CUSTOM_CHALLENGE"
	ChallengeName_PasswordVerifier = "PASSWORD_VERIFIER"
	ChallengeName_SRPA             = "SRP_A"
)

// ChallengeResult is a single completed challenge round as recorded by the user pool.
type ChallengeResult = events.CognitoEventUserPoolsChallengeResult

// Session is the ordered history of challenge rounds of one authentication attempt,
// oldest first. The user pool owns it; the triggers only read it.
type Session []*ChallengeResult

// Attempts returns the number of completed challenge rounds.
func (s Session) Attempts() int {
	return len(s)
}

// Last returns the most recent round, or nil if the session is empty.
func (s Session) Last() *ChallengeResult {
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}
