package proto

import (
	"regexp"
)

const challengeMetadataPrefix = "CODE-"

var challengeMetadataRegex = regexp.MustCompile(`CODE-(\d+)`)

// ChallengeMetadata is the state the issuer carries forward between rounds of a session.
// On the wire it is the opaque challengeMetadata string in the form CODE-<digits>.
type ChallengeMetadata struct {
	Code string
}

func (m ChallengeMetadata) Encode() string {
	return challengeMetadataPrefix + m.Code
}

// ParseChallengeMetadata extracts the code from a challengeMetadata string. The second
// return value is false if no CODE-<digits> pattern is present.
func ParseChallengeMetadata(s string) (ChallengeMetadata, bool) {
	match := challengeMetadataRegex.FindStringSubmatch(s)
	if match == nil {
		return ChallengeMetadata{}, false
	}
	return ChallengeMetadata{Code: match[1]}, true
}
