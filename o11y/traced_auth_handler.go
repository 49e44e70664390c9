package o11y

import (
	"context"
	"strconv"

	"github.com/0xsequence/otp-challenge/auth"
	"github.com/0xsequence/otp-challenge/proto"
)

type tracedAuthHandler struct {
	name string
	auth.Handler
}

// NewTracedAuthHandler wraps handler with spans and decision metrics. The private challenge
// parameters and the answer are never recorded.
func NewTracedAuthHandler(name string, handler auth.Handler) auth.Handler {
	return &tracedAuthHandler{name: name, Handler: handler}
}

// DefineAuthChallenge implements auth.Handler.
func (t *tracedAuthHandler) DefineAuthChallenge(
	ctx context.Context,
	req *proto.DefineAuthChallengeRequest,
) (res *proto.DefineAuthChallengeResponse, err error) {
	ctx, span := Trace(ctx, t.name+".DefineAuthChallenge")
	defer func() {
		span.RecordError(err)
		span.End()
	}()

	span.SetAnnotation("operation", "challenge.define")
	if req != nil {
		span.SetAnnotation("attempts", strconv.Itoa(proto.Session(req.Session).Attempts()))
	}

	res, err = t.Handler.DefineAuthChallenge(ctx, req)
	if err == nil {
		state := "continue"
		switch {
		case res.IssueTokens:
			state = "authenticated"
		case res.FailAuthentication:
			state = "rejected"
		}
		span.SetAnnotation("decision", state)
		challengeDecisions.WithLabelValues(state).Inc()
	}
	return res, err
}

// CreateAuthChallenge implements auth.Handler.
func (t *tracedAuthHandler) CreateAuthChallenge(
	ctx context.Context,
	req *proto.CreateAuthChallengeRequest,
) (res *proto.CreateAuthChallengeResponse, err error) {
	ctx, span := Trace(ctx, t.name+".CreateAuthChallenge")
	round := "first"
	defer func() {
		span.RecordError(err)
		span.End()
		challengesCreated.WithLabelValues(round, outcome(err)).Inc()
	}()

	span.SetAnnotation("operation", "challenge.create")
	if req != nil {
		if len(req.Session) > 0 {
			round = "replay"
		}
		span.SetAnnotation("attempts", strconv.Itoa(proto.Session(req.Session).Attempts()))
		span.SetAnnotation("challenge_name", req.ChallengeName)
	}
	span.SetAnnotation("round", round)

	return t.Handler.CreateAuthChallenge(ctx, req)
}

// VerifyAuthChallengeResponse implements auth.Handler.
func (t *tracedAuthHandler) VerifyAuthChallengeResponse(
	ctx context.Context,
	req *proto.VerifyAuthChallengeResponseRequest,
) (res *proto.VerifyAuthChallengeResponseResponse, err error) {
	ctx, span := Trace(ctx, t.name+".VerifyAuthChallengeResponse")
	defer func() {
		span.RecordError(err)
		span.End()
	}()

	span.SetAnnotation("operation", "challenge.verify")

	res, err = t.Handler.VerifyAuthChallengeResponse(ctx, req)
	if err == nil {
		result := strconv.FormatBool(res.AnswerCorrect)
		span.SetAnnotation("answer_correct", result)
		challengeVerifications.WithLabelValues(result).Inc()
	}
	return res, err
}
