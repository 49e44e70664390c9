package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0xsequence/otp-challenge/config"
	"github.com/0xsequence/otp-challenge/proto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userAttributes = map[string]string{
	proto.UserAttribute_PhoneNumber: "090-1234-5678",
	"given_name":                    "Taro",
}

func postEvent(t *testing.T, url string, raw json.RawMessage) (*http.Response, []byte) {
	res, err := http.Post(url+"/trigger", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, body
}

func TestTrigger(t *testing.T) {
	testCases := map[string]struct {
		answer     func(code string) string
		wantTokens bool
	}{
		"Success": {
			answer:     func(code string) string { return code },
			wantTokens: true,
		},
		"IncorrectCode": {
			answer: func(code string) string {
				if code == "000000" {
					return "000001"
				}
				return "000000"
			},
			wantTokens: false,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			sender := &mockSender{}
			svc := initRPC(t, sender)

			srv := httptest.NewServer(svc.Handler())
			defer srv.Close()

			var session proto.Session

			// define: no history, a challenge is requested
			res, body := postEvent(t, srv.URL, event(t, proto.TriggerSource_DefineAuthChallenge, proto.DefineAuthChallengeRequest{
				UserAttributes: userAttributes,
				Session:        session,
			}))
			require.Equal(t, http.StatusOK, res.StatusCode, string(body))
			var define proto.DefineAuthChallengeEvent
			require.NoError(t, json.Unmarshal(body, &define))
			require.Equal(t, proto.ChallengeName_Custom, define.Response.ChallengeName)
			require.False(t, define.Response.IssueTokens)
			require.False(t, define.Response.FailAuthentication)
			assert.Equal(t, "ap-northeast-1_example", define.UserPoolID)
			assert.NotEmpty(t, res.Header.Get("X-Challenge-Span"))

			// create: the code is generated and sent to the normalized number
			res, body = postEvent(t, srv.URL, event(t, proto.TriggerSource_CreateAuthChallenge, createRequest(userAttributes, session)))
			require.Equal(t, http.StatusOK, res.StatusCode, string(body))
			var create proto.CreateAuthChallengeEvent
			require.NoError(t, json.Unmarshal(body, &create))

			msg := sender.lastMessage(t)
			assert.Equal(t, "+819012345678", msg.recipient)
			assert.Len(t, msg.code, 6)
			assert.Equal(t, "CODE-"+msg.code, create.Response.ChallengeMetadata)
			assert.Equal(t, "090-1234-5678", create.Response.PublicChallengeParameters[proto.PublicParameter_PhoneNumber])
			assert.NotContains(t, create.Response.PublicChallengeParameters, proto.PrivateParameter_Code)

			// verify
			res, body = postEvent(t, srv.URL, event(t, proto.TriggerSource_VerifyAuthChallengeResponse, proto.VerifyAuthChallengeResponseRequest{
				UserAttributes:             userAttributes,
				PrivateChallengeParameters: create.Response.PrivateChallengeParameters,
				ChallengeAnswer:            tc.answer(msg.code),
			}))
			require.Equal(t, http.StatusOK, res.StatusCode, string(body))
			var verify proto.VerifyAuthChallengeResponseEvent
			require.NoError(t, json.Unmarshal(body, &verify))
			assert.Equal(t, tc.wantTokens, verify.Response.AnswerCorrect)

			// define again: the round is final either way
			session = append(session, &proto.ChallengeResult{
				ChallengeName:     proto.ChallengeName_Custom,
				ChallengeResult:   verify.Response.AnswerCorrect,
				ChallengeMetadata: create.Response.ChallengeMetadata,
			})
			res, body = postEvent(t, srv.URL, event(t, proto.TriggerSource_DefineAuthChallenge, proto.DefineAuthChallengeRequest{
				UserAttributes: userAttributes,
				Session:        session,
			}))
			require.Equal(t, http.StatusOK, res.StatusCode, string(body))
			define = proto.DefineAuthChallengeEvent{}
			require.NoError(t, json.Unmarshal(body, &define))
			assert.Equal(t, tc.wantTokens, define.Response.IssueTokens)
			assert.Equal(t, !tc.wantTokens, define.Response.FailAuthentication)
			assert.Empty(t, define.Response.ChallengeName)

			assert.Equal(t, 1, sender.count())
		})
	}
}

func TestTrigger_Replay(t *testing.T) {
	sender := &mockSender{}
	svc := initRPC(t, sender)

	out, err := svc.Dispatch(context.Background(), event(t, proto.TriggerSource_CreateAuthChallenge, createRequest(userAttributes, proto.Session{
		{ChallengeName: proto.ChallengeName_Custom, ChallengeMetadata: "CODE-730194"},
	})))
	require.NoError(t, err)

	var create proto.CreateAuthChallengeEvent
	require.NoError(t, json.Unmarshal(out, &create))
	assert.Equal(t, "730194", create.Response.PrivateChallengeParameters[proto.PrivateParameter_Code])
	assert.Equal(t, "CODE-730194", create.Response.ChallengeMetadata)
	assert.Zero(t, sender.count())
}

func TestTrigger_AttemptsExhausted(t *testing.T) {
	svc := initRPC(t, &mockSender{})

	round := &proto.ChallengeResult{ChallengeName: proto.ChallengeName_Custom, ChallengeResult: true, ChallengeMetadata: "CODE-123456"}
	out, err := svc.Dispatch(context.Background(), event(t, proto.TriggerSource_DefineAuthChallenge, proto.DefineAuthChallengeRequest{
		Session: proto.Session{round, round, round},
	}))
	require.NoError(t, err)

	var define proto.DefineAuthChallengeEvent
	require.NoError(t, json.Unmarshal(out, &define))
	assert.True(t, define.Response.FailAuthentication)
	assert.False(t, define.Response.IssueTokens)
}

func TestTrigger_PreSignUp(t *testing.T) {
	svc := initRPC(t, nil)

	for _, source := range []proto.TriggerSource{
		proto.TriggerSource_PreSignUp,
		proto.TriggerSource_PreSignUpAdminCreateUser,
		proto.TriggerSource_PreSignUpExternalProvider,
	} {
		t.Run(source.String(), func(t *testing.T) {
			out, err := svc.Dispatch(context.Background(), event(t, source, proto.PreSignUpRequest{
				UserAttributes: userAttributes,
			}))
			require.NoError(t, err)

			var signUp proto.PreSignUpEvent
			require.NoError(t, json.Unmarshal(out, &signUp))
			assert.True(t, signUp.Response.AutoConfirmUser)
			assert.True(t, signUp.Response.AutoVerifyPhone)
			assert.False(t, signUp.Response.AutoVerifyEmail)
		})
	}
}

func TestTrigger_Errors(t *testing.T) {
	t.Run("DeliveryFailure", func(t *testing.T) {
		svc := initRPC(t, &mockSender{sendErr: errors.New("sms quota exceeded")})
		srv := httptest.NewServer(svc.Handler())
		defer srv.Close()

		res, body := postEvent(t, srv.URL, event(t, proto.TriggerSource_CreateAuthChallenge, createRequest(userAttributes, nil)))
		assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

		var rpcErr proto.Error
		require.NoError(t, json.Unmarshal(body, &rpcErr))
		assert.Equal(t, proto.ErrDeliveryFailed.Code, rpcErr.Code)
		assert.NotContains(t, string(body), "quota")
		assert.NotContains(t, string(body), "CODE-")
	})

	t.Run("UnsupportedTrigger", func(t *testing.T) {
		svc := initRPC(t, &mockSender{})
		_, err := svc.Dispatch(context.Background(), event(t, "PostConfirmation_ConfirmSignUp", map[string]any{}))
		require.ErrorIs(t, err, proto.ErrUnsupportedTrigger)
	})

	t.Run("MalformedEvent", func(t *testing.T) {
		svc := initRPC(t, &mockSender{})
		_, err := svc.Dispatch(context.Background(), json.RawMessage(`{"triggerSource":`))
		require.ErrorIs(t, err, proto.ErrInvalidRequest)

		_, err = svc.Dispatch(context.Background(), json.RawMessage(`{"triggerSource":"DefineAuthChallenge_Authentication","request":{"session":"nope"}}`))
		require.ErrorIs(t, err, proto.ErrInvalidRequest)
	})

	t.Run("EventTooLarge", func(t *testing.T) {
		svc := initRPC(t, &mockSender{})

		body := `{"padding":"` + strings.Repeat("x", 300<<10) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/trigger", strings.NewReader(body))
		rec := httptest.NewRecorder()
		svc.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "InvalidRequest")
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		svc := initRPC(t, &mockSender{})
		srv := httptest.NewServer(svc.Handler())
		defer srv.Close()

		res, err := http.Get(srv.URL + "/trigger")
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	})
}

func TestNew(t *testing.T) {
	t.Run("EmailChannel", func(t *testing.T) {
		svc := initRPC(t, nil, func(cfg *config.Config) {
			cfg.Challenge.Channel = "email"
		})
		require.NotNil(t, svc.AuthHandler)

		out, err := svc.Dispatch(context.Background(), event(t, proto.TriggerSource_PreSignUp, proto.PreSignUpRequest{
			UserAttributes: map[string]string{proto.UserAttribute_Email: "user@example.com"},
		}))
		require.NoError(t, err)
		var signUp proto.PreSignUpEvent
		require.NoError(t, json.Unmarshal(out, &signUp))
		assert.True(t, signUp.Response.AutoVerifyEmail)
	})

	t.Run("EmailChannelWithoutSource", func(t *testing.T) {
		cfg := initConfig(t)
		cfg.Challenge.Channel = "email"
		cfg.SES.Source = ""

		_, err := rpcNew(cfg)
		require.ErrorContains(t, err, "no sender for channel: email")
	})
}

func TestStatusAndHealth(t *testing.T) {
	svc := initRPC(t, &mockSender{})
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var status map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	assert.Equal(t, "local", status["mode"])
	assert.Equal(t, "sms", status["channel"])

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestTrigger_ReplayWithoutMetadataLogged(t *testing.T) {
	var buf bytes.Buffer
	svc := initRPC(t, &mockSender{})
	svc.Log = zerolog.New(&buf)

	out, err := svc.Dispatch(context.Background(), event(t, proto.TriggerSource_CreateAuthChallenge, createRequest(userAttributes, proto.Session{
		{ChallengeName: proto.ChallengeName_SRPA, ChallengeResult: true},
	})))
	require.NoError(t, err)

	var create proto.CreateAuthChallengeEvent
	require.NoError(t, json.Unmarshal(out, &create))
	assert.Equal(t, "CODE-", create.Response.ChallengeMetadata)

	logs := buf.String()
	assert.Contains(t, logs, `"level":"warn"`)
	assert.Contains(t, logs, "no code in challenge metadata")
	assert.Contains(t, logs, `"trigger_source":"CreateAuthChallenge_Authentication"`)
}

func TestNew_CustomCABundle(t *testing.T) {
	gateway := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	bundle := filepath.Join(t.TempDir(), "ca.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: gateway.Certificate().Raw})
	require.NoError(t, os.WriteFile(bundle, certPEM, 0o600))
	t.Setenv("AWS_CA_BUNDLE", bundle)

	svc, err := rpcNew(initConfig(t))
	require.NoError(t, err)
	require.NotNil(t, svc.AuthHandler)

	// the client used for AWS requests trusts the bundle
	req, err := http.NewRequest(http.MethodGet, gateway.URL, nil)
	require.NoError(t, err)
	res, err := svc.HTTPClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
