package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	otpChallenge "github.com/0xsequence/otp-challenge"
	"github.com/0xsequence/otp-challenge/auth"
	"github.com/0xsequence/otp-challenge/auth/otp"
	"github.com/0xsequence/otp-challenge/auth/presignup"
	"github.com/0xsequence/otp-challenge/config"
	"github.com/0xsequence/otp-challenge/o11y"
	"github.com/0xsequence/otp-challenge/proto"
	"github.com/0xsequence/otp-challenge/rpc/awscreds"
	"github.com/0xsequence/otp-challenge/rpc/email"
	"github.com/0xsequence/otp-challenge/rpc/sms"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog"
	"github.com/go-chi/traceid"
	"github.com/goware/cachestore/cachestorectl"
	"github.com/goware/cachestore/memlru"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RPC struct {
	Config      *config.Config
	Log         zerolog.Logger
	Server      *http.Server
	HTTPClient  o11y.HTTPClient
	AuthHandler auth.Handler
	SignUpGate  auth.SignUpGate

	startTime time.Time
	running   int32
}

func New(cfg *config.Config, transport http.RoundTripper) (*RPC, error) {
	client := &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
	wrappedClient := o11y.WrapClient(client)

	options := []func(options *awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.Endpoints.MetadataServer != "" {
		options = append(options,
			awsconfig.WithCredentialsProvider(awscreds.NewProvider(wrappedClient, cfg.Endpoints.MetadataServer)),
		)
	}

	if cfg.Endpoints.AWSEndpoint != "" {
		options = append(options, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: cfg.Endpoints.AWSEndpoint}, nil
			}),
		), awsconfig.WithCredentialsProvider(&awscreds.StaticProvider{
			AccessKeyID:     "test",
			SecretAccessKey: "test",
			SessionToken:    "test",
		}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), options...)
	if err != nil {
		return nil, err
	}
	customCABundle := awsCfg.HTTPClient != nil
	if !customCABundle {
		awsCfg.HTTPClient = wrappedClient
	} else {
		// the loader only builds its own client to trust a custom CA bundle (AWS_CA_BUNDLE or
		// ca_bundle), which cannot be applied to an arbitrary transport chain
		awsCfg.HTTPClient = o11y.WrapClient(awsCfg.HTTPClient)
	}

	httpServer := &http.Server{
		ReadTimeout:       45 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       45 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logLevel := zerolog.LevelInfoValue
	if cfg.Mode != config.ProductionMode {
		logLevel = zerolog.LevelDebugValue
	}

	s := &RPC{
		Log: httplog.NewLogger("otp-challenge", httplog.Options{
			LogLevel: logLevel,
			JSON:     cfg.Mode != config.LocalMode,
		}),
		Config:     cfg,
		Server:     httpServer,
		HTTPClient: awsCfg.HTTPClient,
		SignUpGate: presignup.NewGate(
			cfg.SignUp.AutoVerifyPhone || cfg.Challenge.Channel == string(proto.Channel_SMS),
			cfg.SignUp.AutoVerifyEmail || cfg.Challenge.Channel == string(proto.Channel_Email),
		),
		startTime: time.Now(),
	}

	if customCABundle {
		s.Log.Warn().
			Str("op", "new").
			Msg("-> rpc: custom CA bundle configured, AWS requests bypass the outbound transport chain")
	}

	s.AuthHandler, err = s.makeAuthHandler(awsCfg, *cfg)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *RPC) Run(ctx context.Context, l net.Listener) error {
	if s.IsRunning() {
		return fmt.Errorf("rpc: already running")
	}

	s.Log.Info().
		Str("op", "run").
		Str("ver", otpChallenge.VERSION).
		Str("channel", s.Config.Challenge.Channel).
		Msgf("-> rpc: started otp challenge service")

	atomic.StoreInt32(&s.running, 1)
	defer atomic.StoreInt32(&s.running, 0)

	// Setup HTTP server handler
	s.Server.Handler = s.Handler()

	// Handle stop signal to ensure clean shutdown
	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	// Start the http server and serve!
	err := s.Server.Serve(l)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *RPC) Stop(timeoutCtx context.Context) {
	if !s.IsRunning() || s.IsStopping() {
		return
	}
	atomic.StoreInt32(&s.running, 2)

	s.Log.Info().Str("op", "stop").Msg("-> rpc: stopping..")
	s.Server.Shutdown(timeoutCtx)
	s.Log.Info().Str("op", "stop").Msg("-> rpc: stopped.")
}

func (s *RPC) IsRunning() bool {
	return atomic.LoadInt32(&s.running) == 1
}

func (s *RPC) IsStopping() bool {
	return atomic.LoadInt32(&s.running) == 2
}

func (s *RPC) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// Propagate TraceId
	r.Use(traceid.Middleware)

	// HTTP request logger
	r.Use(httplog.RequestLogger(s.Log, []string{"/", "/ping", "/health", "/status", "/metrics", "/favicon.ico"}))

	// Triggers are synchronous and the user pool gives up after 5 seconds.
	r.Use(middleware.Timeout(5 * time.Second))

	r.Use(cors.New(cors.Options{
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Traceparent"},
		ExposedHeaders:   []string{o11y.SpanHeader},
		AllowCredentials: false,
		MaxAge:           600,
	}).Handler)

	// Observability middleware, span trees are only exposed outside of production
	r.Use(o11y.Middleware(s.Config.Mode != config.ProductionMode))

	// Healthcheck
	r.Use(middleware.PageRoute("/health", http.HandlerFunc(s.healthHandler)))
	r.Use(middleware.PageRoute("/status", http.HandlerFunc(s.statusHandler)))

	r.Handle("/metrics", promhttp.Handler())
	r.Post("/trigger", s.triggerHandler)

	return r
}

func (s *RPC) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"startTime": s.startTime,
		"uptime":    uint64(time.Now().UTC().Sub(s.startTime).Seconds()),
		"ver":       otpChallenge.VERSION,
		"mode":      s.Config.Mode.String(),
		"channel":   s.Config.Challenge.Channel,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(status)
}

func (s *RPC) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.AuthHandler == nil || s.SignUpGate == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *RPC) makeAuthHandler(awsCfg aws.Config, cfg config.Config) (auth.Handler, error) {
	channel, err := proto.ParseChannel(cfg.Challenge.Channel)
	if err != nil {
		return nil, err
	}

	cacheBackend := memlru.Backend(int(cfg.Cache.RecipientsSize))
	recipients, err := cachestorectl.Open[string](cacheBackend)
	if err != nil {
		return nil, fmt.Errorf("open recipient cache: %w", err)
	}

	senders := map[proto.Channel]otp.Sender{
		proto.Channel_SMS: o11y.NewTracedSender(string(proto.Channel_SMS), sms.NewSender(
			sms.NewClient(awsCfg, cfg.SNS),
			cfg.SNS,
			cfg.Challenge,
			o11y.NewTracedCache("recipients", recipients),
		)),
	}
	if cfg.SES.Source != "" {
		senders[proto.Channel_Email] = o11y.NewTracedSender(string(proto.Channel_Email), email.NewSender(
			email.NewClient(awsCfg, cfg.SES),
			cfg.SES,
			cfg.Challenge,
		))
	}

	otpHandler, err := otp.NewAuthHandler(nil, senders,
		otp.WithChannel(channel),
		otp.WithChallengeName(cfg.Challenge.Name),
		otp.WithMaxAttempts(cfg.Challenge.MaxAttempts),
		otp.WithCodeLength(cfg.Challenge.CodeLength),
	)
	if err != nil {
		return nil, fmt.Errorf("create otp handler: %w", err)
	}

	return o11y.NewTracedAuthHandler("otp.AuthHandler", otpHandler), nil
}
