package main

import (
	"net/http"

	otpChallenge "github.com/0xsequence/otp-challenge"
	"github.com/0xsequence/otp-challenge/config"
	"github.com/0xsequence/otp-challenge/rpc"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-chi/traceid"
	"github.com/go-chi/transport"
)

// The same binary serves all four triggers; the user pool tells them apart by triggerSource.
func main() {
	cfg, err := config.New()
	if err != nil {
		panic(err)
	}

	transportChain := transport.Chain(
		http.DefaultTransport,
		transport.SetHeader("User-Agent", "otp-challenge-lambda/"+otpChallenge.VERSION),
		traceid.Transport,
	)

	s, err := rpc.New(cfg, transportChain)
	if err != nil {
		panic(err)
	}

	lambda.Start(s.Dispatch)
}
