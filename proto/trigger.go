package proto

import (
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// TriggerSource names the user pool operation that invoked a trigger.
type TriggerSource string

const (
	TriggerSource_DefineAuthChallenge         TriggerSource = "DefineAuthChallenge_Authentication"
	TriggerSource_CreateAuthChallenge         TriggerSource = "CreateAuthChallenge_Authentication"
	TriggerSource_VerifyAuthChallengeResponse TriggerSource = "VerifyAuthChallengeResponse_Authentication"
	TriggerSource_PreSignUp                   TriggerSource = "PreSignUp_SignUp"
	TriggerSource_PreSignUpAdminCreateUser    TriggerSource = "PreSignUp_AdminCreateUser"
	TriggerSource_PreSignUpExternalProvider   TriggerSource = "PreSignUp_ExternalProvider"
)

func (s TriggerSource) String() string {
	return string(s)
}

// IsPreSignUp reports whether the trigger is any of the pre sign-up variants.
func (s TriggerSource) IsPreSignUp() bool {
	return strings.HasPrefix(string(s), "PreSignUp_")
}

// EventHeader holds the fields common to every trigger event.
type EventHeader = events.CognitoEventUserPoolsHeader

// Event is a trigger invocation: the request supplied by the user pool and the response
// the trigger fills in. The whole event is returned to the user pool. Its wire shape is
// that of the matching events.CognitoEventUserPools* type.
type Event[Req any, Res any] struct {
	events.CognitoEventUserPoolsHeader
	Request  Req `json:"request"`
	Response Res `json:"response"`
}

type (
	DefineAuthChallengeRequest  = events.CognitoEventUserPoolsDefineAuthChallengeRequest
	DefineAuthChallengeResponse = events.CognitoEventUserPoolsDefineAuthChallengeResponse

	CreateAuthChallengeResponse = events.CognitoEventUserPoolsCreateAuthChallengeResponse

	VerifyAuthChallengeResponseRequest  = events.CognitoEventUserPoolsVerifyAuthChallengeRequest
	VerifyAuthChallengeResponseResponse = events.CognitoEventUserPoolsVerifyAuthChallengeResponse

	PreSignUpRequest  = events.CognitoEventUserPoolsPreSignupRequest
	PreSignUpResponse = events.CognitoEventUserPoolsPreSignupResponse
)

// CreateAuthChallengeRequest adds the userNotFound flag, sent when the user pool hides
// user existence, to the library request.
type CreateAuthChallengeRequest struct {
	events.CognitoEventUserPoolsCreateAuthChallengeRequest
	UserNotFound bool `json:"userNotFound,omitempty"`
}

// ChallengeAnswer returns the answer of a verify request. Answers that are not strings
// are returned empty.
func ChallengeAnswer(req *VerifyAuthChallengeResponseRequest) string {
	answer, _ := req.ChallengeAnswer.(string)
	return answer
}

type (
	DefineAuthChallengeEvent         = Event[DefineAuthChallengeRequest, DefineAuthChallengeResponse]
	CreateAuthChallengeEvent         = Event[CreateAuthChallengeRequest, CreateAuthChallengeResponse]
	VerifyAuthChallengeResponseEvent = Event[VerifyAuthChallengeResponseRequest, VerifyAuthChallengeResponseResponse]
	PreSignUpEvent                   = Event[PreSignUpRequest, PreSignUpResponse]
)
