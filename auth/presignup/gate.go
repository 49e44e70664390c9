// Package presignup confirms new registrations without a separate verification step.
// The one-time code delivered on every sign-in proves control of the contact address, so
// the address is marked verified up front.
package presignup

import (
	"context"

	"github.com/0xsequence/otp-challenge/auth"
	"github.com/0xsequence/otp-challenge/proto"
)

type Gate struct {
	autoVerifyPhone bool
	autoVerifyEmail bool
}

var _ auth.SignUpGate = (*Gate)(nil)

func NewGate(autoVerifyPhone bool, autoVerifyEmail bool) *Gate {
	return &Gate{
		autoVerifyPhone: autoVerifyPhone,
		autoVerifyEmail: autoVerifyEmail,
	}
}

// PreSignUp always confirms the user. An address is only marked verified if the user
// supplied one.
func (g *Gate) PreSignUp(ctx context.Context, req *proto.PreSignUpRequest) (*proto.PreSignUpResponse, error) {
	if req == nil {
		return nil, proto.ErrInvalidRequest.WithCausef("request is required")
	}

	res := &proto.PreSignUpResponse{
		AutoConfirmUser: true,
		AutoVerifyPhone: g.autoVerifyPhone && req.UserAttributes[proto.UserAttribute_PhoneNumber] != "",
		AutoVerifyEmail: g.autoVerifyEmail && req.UserAttributes[proto.UserAttribute_Email] != "",
	}
	return res, nil
}
