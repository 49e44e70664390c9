package auth

import (
	"context"

	"github.com/0xsequence/otp-challenge/proto"
)

// Handler implements the three custom authentication challenge triggers. The user pool
// calls DefineAuthChallenge first, then CreateAuthChallenge and VerifyAuthChallengeResponse
// for every round it decides to run, carrying all state in the session history.
type Handler interface {
	DefineAuthChallenge(
		ctx context.Context, req *proto.DefineAuthChallengeRequest,
	) (*proto.DefineAuthChallengeResponse, error)

	CreateAuthChallenge(
		ctx context.Context, req *proto.CreateAuthChallengeRequest,
	) (*proto.CreateAuthChallengeResponse, error)

	VerifyAuthChallengeResponse(
		ctx context.Context, req *proto.VerifyAuthChallengeResponseRequest,
	) (*proto.VerifyAuthChallengeResponseResponse, error)
}

// SignUpGate decides on new registrations before the user is created.
type SignUpGate interface {
	PreSignUp(ctx context.Context, req *proto.PreSignUpRequest) (*proto.PreSignUpResponse, error)
}
