package otp

import (
	"github.com/0xsequence/otp-challenge/proto"
)

// issuedCode recovers the code bound to the session by the first round. The second return
// value is false if the latest round carries no CODE-<digits> metadata, in which case the
// code is empty and can never verify.
func issuedCode(session proto.Session) (string, bool) {
	last := session.Last()
	if last == nil {
		return "", false
	}
	md, ok := proto.ParseChallengeMetadata(last.ChallengeMetadata)
	if !ok {
		return "", false
	}
	return md.Code, true
}
