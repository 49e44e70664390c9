package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/0xsequence/otp-challenge/auth"
	"github.com/0xsequence/otp-challenge/o11y"
	"github.com/0xsequence/otp-challenge/proto"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxAttempts = 3
	DefaultCodeLength  = 6
)

type AuthHandler struct {
	challengeName  string
	maxAttempts    int
	codeLength     int
	channel        proto.Channel
	senders        map[proto.Channel]Sender
	randomProvider func(ctx context.Context) io.Reader
}

var _ auth.Handler = (*AuthHandler)(nil)

type Option func(*AuthHandler)

func WithChallengeName(name string) Option {
	return func(h *AuthHandler) {
		h.challengeName = name
	}
}

func WithMaxAttempts(n int) Option {
	return func(h *AuthHandler) {
		h.maxAttempts = n
	}
}

func WithCodeLength(n int) Option {
	return func(h *AuthHandler) {
		h.codeLength = n
	}
}

// WithChannel selects the sender used for delivery and the user attribute the contact
// address is read from. Defaults to SMS.
func WithChannel(channel proto.Channel) Option {
	return func(h *AuthHandler) {
		h.channel = channel
	}
}

func NewAuthHandler(
	randomProvider func(ctx context.Context) io.Reader,
	senders map[proto.Channel]Sender,
	opts ...Option,
) (*AuthHandler, error) {
	if randomProvider == nil {
		randomProvider = func(context.Context) io.Reader { return rand.Reader }
	}
	h := &AuthHandler{
		challengeName:  proto.ChallengeName_Custom,
		maxAttempts:    DefaultMaxAttempts,
		codeLength:     DefaultCodeLength,
		channel:        proto.Channel_SMS,
		senders:        senders,
		randomProvider: randomProvider,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.maxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be positive: %d", h.maxAttempts)
	}
	if h.codeLength < 1 {
		return nil, fmt.Errorf("code length must be positive: %d", h.codeLength)
	}
	if _, ok := h.senders[h.channel]; !ok {
		return nil, fmt.Errorf("no sender for channel: %s", h.channel)
	}
	return h, nil
}

// CurrentState reads the state recorded by the session history. An attempt awaits a
// challenge until a round of this challenge has been answered. That round is final either
// way; a wrong answer is not retried within the same attempt.
func (h *AuthHandler) CurrentState(session proto.Session) State {
	if last := session.Last(); last != nil && last.ChallengeName == h.challengeName {
		if last.ChallengeResult {
			return StateAuthenticated
		}
		return StateRejected
	}
	return StateAwaitingChallenge
}

// NextState decides how the attempt continues given its session history. The attempt limit
// is checked first and holds even if the latest answer was correct.
func (h *AuthHandler) NextState(session proto.Session) State {
	if session.Attempts() >= h.maxAttempts {
		return StateRejected
	}
	if state := h.CurrentState(session); state.IsTerminal() {
		return state
	}
	return StateChallengeIssued
}

func (h *AuthHandler) DefineAuthChallenge(
	ctx context.Context,
	req *proto.DefineAuthChallengeRequest,
) (*proto.DefineAuthChallengeResponse, error) {
	if req == nil {
		return nil, proto.ErrInvalidRequest.WithCausef("request is required")
	}

	session := proto.Session(req.Session)
	current, next := h.CurrentState(session), h.NextState(session)
	o11y.LoggerFromContext(ctx).Info("challenge state", "from", current.String(), "to", next.String())

	res := &proto.DefineAuthChallengeResponse{}
	switch next {
	case StateAuthenticated:
		res.IssueTokens = true
	case StateRejected:
		res.FailAuthentication = true
	default:
		res.ChallengeName = h.challengeName
	}
	return res, nil
}

// CreateAuthChallenge binds a code to the session. The first round generates the code and
// delivers it; later rounds of the same session reuse the code recorded in the metadata of
// the latest round and deliver nothing.
func (h *AuthHandler) CreateAuthChallenge(
	ctx context.Context,
	req *proto.CreateAuthChallengeRequest,
) (*proto.CreateAuthChallengeResponse, error) {
	if req == nil {
		return nil, proto.ErrInvalidRequest.WithCausef("request is required")
	}
	log := o11y.LoggerFromContext(ctx)

	recipient := req.UserAttributes[h.channel.UserAttribute()]
	session := proto.Session(req.Session)

	var code string
	if session.Attempts() == 0 {
		if recipient == "" && !req.UserNotFound {
			return nil, proto.ErrInvalidRequest.WithCausef("missing user attribute: %s", h.channel.UserAttribute())
		}

		var err error
		code, err = randomDigits(h.randomProvider(ctx), h.codeLength)
		if err != nil {
			return nil, proto.ErrInternalError.WithCausef("generate code: %w", err)
		}

		if req.UserNotFound {
			// nothing to deliver to, the round still runs so the user's existence is not revealed
			log.Info("user not found, skipping delivery")
		} else if err := h.deliver(ctx, recipient, code); err != nil {
			return nil, err
		}
	} else {
		var ok bool
		code, ok = issuedCode(session)
		if !ok {
			log.Warn("no code in challenge metadata, issuing an empty code", "attempts", session.Attempts())
			zerolog.Ctx(ctx).Warn().
				Str("op", "challenge.create").
				Int("attempts", session.Attempts()).
				Msg("otp: no code in challenge metadata, issuing an empty code")
		}
	}

	md := proto.ChallengeMetadata{Code: code}
	res := &proto.CreateAuthChallengeResponse{
		PublicChallengeParameters: map[string]string{
			h.channel.PublicParameter(): recipient,
		},
		PrivateChallengeParameters: map[string]string{
			proto.PrivateParameter_Code: code,
		},
		ChallengeMetadata: md.Encode(),
	}
	return res, nil
}

func (h *AuthHandler) deliver(ctx context.Context, recipient string, code string) error {
	sender := h.senders[h.channel]

	normalized, err := sender.NormalizeRecipient(ctx, recipient)
	if err != nil {
		return proto.ErrInvalidRequest.WithCausef("invalid recipient: %w", err)
	}
	if err := sender.SendOTP(ctx, normalized, code); err != nil {
		return proto.ErrDeliveryFailed.WithCausef("send otp: %w", err)
	}
	return nil
}

// VerifyAuthChallengeResponse compares the answer byte for byte with the code bound to the
// round. No normalization is applied. An empty bound code never verifies.
func (h *AuthHandler) VerifyAuthChallengeResponse(
	ctx context.Context,
	req *proto.VerifyAuthChallengeResponseRequest,
) (*proto.VerifyAuthChallengeResponseResponse, error) {
	if req == nil {
		return nil, proto.ErrInvalidRequest.WithCausef("request is required")
	}

	expected := req.PrivateChallengeParameters[proto.PrivateParameter_Code]
	answer := proto.ChallengeAnswer(req)
	correct := expected != "" && subtle.ConstantTimeCompare([]byte(answer), []byte(expected)) == 1
	return &proto.VerifyAuthChallengeResponseResponse{AnswerCorrect: correct}, nil
}
