package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/0xsequence/otp-challenge/proto"
	"github.com/aws/aws-lambda-go/events"
)

// maxEventSize bounds trigger event bodies; user pool events are a few KiB at most.
const maxEventSize = 256 << 10

// Dispatch decodes a raw trigger event, runs the trigger selected by its triggerSource and
// returns the event with the response filled in. It is the entry point for both the HTTP
// endpoint and the Lambda runtime.
func (s *RPC) Dispatch(ctx context.Context, raw json.RawMessage) (_ json.RawMessage, err error) {
	var header events.CognitoEventUserPoolsHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, proto.ErrInvalidRequest.WithCausef("decode event header: %w", err)
	}
	ctx = s.Log.WithContext(ctx)

	defer func() {
		ev := s.Log.Info()
		if err != nil {
			ev = s.Log.Warn().Err(err)
		}
		ev.Str("op", "trigger").
			Str("trigger_source", header.TriggerSource).
			Str("user_pool_id", header.UserPoolID).
			Str("client_id", header.CallerContext.ClientID).
			Msg("-> rpc: trigger handled")
	}()

	switch src := proto.TriggerSource(header.TriggerSource); {
	case src == proto.TriggerSource_DefineAuthChallenge:
		return handleEvent(ctx, raw, s.AuthHandler.DefineAuthChallenge)
	case src == proto.TriggerSource_CreateAuthChallenge:
		return handleEvent(ctx, raw, s.AuthHandler.CreateAuthChallenge)
	case src == proto.TriggerSource_VerifyAuthChallengeResponse:
		return handleEvent(ctx, raw, s.AuthHandler.VerifyAuthChallengeResponse)
	case src.IsPreSignUp():
		return handleEvent(ctx, raw, s.SignUpGate.PreSignUp)
	default:
		return nil, proto.ErrUnsupportedTrigger.WithCausef("trigger source %q", src)
	}
}

func handleEvent[Req any, Res any](
	ctx context.Context,
	raw json.RawMessage,
	fn func(context.Context, *Req) (*Res, error),
) (json.RawMessage, error) {
	var event proto.Event[Req, Res]
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, proto.ErrInvalidRequest.WithCausef("decode event: %w", err)
	}

	res, err := fn(ctx, &event.Request)
	if err != nil {
		return nil, err
	}
	event.Response = *res

	out, err := json.Marshal(event)
	if err != nil {
		return nil, proto.ErrInternalError.WithCausef("encode event: %w", err)
	}
	return out, nil
}

func (s *RPC) triggerHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			proto.RespondWithError(w, proto.ErrInvalidRequest.WithCausef("event too large"))
			return
		}
		proto.RespondWithError(w, proto.ErrInvalidRequest.WithCausef("read body: %w", err))
		return
	}

	out, err := s.Dispatch(r.Context(), body)
	if err != nil {
		proto.RespondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
