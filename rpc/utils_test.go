package rpc_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/0xsequence/otp-challenge/auth/otp"
	"github.com/0xsequence/otp-challenge/config"
	"github.com/0xsequence/otp-challenge/o11y"
	"github.com/0xsequence/otp-challenge/proto"
	"github.com/0xsequence/otp-challenge/rpc"
	"github.com/0xsequence/otp-challenge/rpc/sms"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	recipient string
	code      string
}

// mockSender normalizes like the SMS sender but records messages instead of publishing.
type mockSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	sendErr error
}

func (s *mockSender) NormalizeRecipient(_ context.Context, recipient string) (string, error) {
	return sms.Normalize(recipient, "JP")
}

func (s *mockSender) SendOTP(_ context.Context, recipient string, code string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{recipient: recipient, code: code})
	return nil
}

func (s *mockSender) lastMessage(t *testing.T) sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent)
	return s.sent[len(s.sent)-1]
}

func (s *mockSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func initConfig(t *testing.T) *config.Config {
	cfg, err := config.Parse(`
region = "ap-northeast-1"

[service]
mode = "local"

[endpoints]
aws_endpoint = "http://127.0.0.1:4566"

[ses]
source = "noreply@example.com"
`)
	require.NoError(t, err)
	return cfg
}

func initRPC(t *testing.T, sender otp.Sender, options ...func(*config.Config)) *rpc.RPC {
	cfg := initConfig(t)
	for _, opt := range options {
		opt(cfg)
	}

	svc, err := rpc.New(cfg, nil)
	require.NoError(t, err)

	if sender != nil {
		handler, err := otp.NewAuthHandler(nil, map[proto.Channel]otp.Sender{
			proto.Channel_SMS: o11y.NewTracedSender("sms", sender),
		})
		require.NoError(t, err)
		svc.AuthHandler = o11y.NewTracedAuthHandler("otp.AuthHandler", handler)
	}
	return svc
}

func event(t *testing.T, source proto.TriggerSource, request any) json.RawMessage {
	raw, err := json.Marshal(map[string]any{
		"version":       "1",
		"region":        "ap-northeast-1",
		"userPoolId":    "ap-northeast-1_example",
		"userName":      "user",
		"callerContext": map[string]string{"awsSdkVersion": "aws-sdk-unknown-unknown", "clientId": "client"},
		"triggerSource": source,
		"request":       request,
		"response":      map[string]any{},
	})
	require.NoError(t, err)
	return raw
}

func createRequest(attrs map[string]string, session proto.Session) *proto.CreateAuthChallengeRequest {
	req := &proto.CreateAuthChallengeRequest{}
	req.UserAttributes = attrs
	req.ChallengeName = proto.ChallengeName_Custom
	req.Session = session
	return req
}

func rpcNew(cfg *config.Config) (*rpc.RPC, error) {
	return rpc.New(cfg, nil)
}
