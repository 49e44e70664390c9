package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/0xsequence/otp-challenge/auth/otp"
	"github.com/0xsequence/otp-challenge/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/go-playground/validator/v10"
)

const defaultSubject = "Your verification code"

// recipient holds the rules SES destinations must satisfy: an addr-spec without display
// name, at most 254 octets, under a top-level domain of two or more letters.
type recipient struct {
	Address string `validate:"required,max=254,email,tld"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("tld", func(fl validator.FieldLevel) bool {
		addr := fl.Field().String()
		dot := strings.LastIndexByte(addr, '.')
		if dot < strings.LastIndexByte(addr, '@') {
			return false
		}
		tld := addr[dot+1:]
		if len(tld) < 2 {
			return false
		}
		for _, c := range tld {
			if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
				return false
			}
		}
		return true
	})
	return v
}

type Client interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func NewClient(awsCfg aws.Config, cfg config.SESConfig) *ses.Client {
	awsCfg = awsCfg.Copy()
	if cfg.AccessRoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		creds := stscreds.NewAssumeRoleProvider(stsClient, cfg.AccessRoleARN)
		awsCfg.Credentials = aws.NewCredentialsCache(creds)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}
	return ses.NewFromConfig(awsCfg)
}

// Sender delivers one-time codes by email through Amazon SES.
type Sender struct {
	client          Client
	cfg             config.SESConfig
	messageTemplate string
}

var _ otp.Sender = (*Sender)(nil)

func NewSender(client Client, cfg config.SESConfig, challengeCfg config.ChallengeConfig) *Sender {
	return &Sender{
		client:          client,
		cfg:             cfg,
		messageTemplate: challengeCfg.MessageTemplate,
	}
}

// NormalizeRecipient trims and lowercases the address, then checks it can be used as an
// SES destination.
func (s *Sender) NormalizeRecipient(_ context.Context, address string) (string, error) {
	r := recipient{Address: strings.ToLower(strings.TrimSpace(address))}
	if err := validate.Struct(r); err != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(err, &validateErrs) && len(validateErrs) > 0 {
			return "", fmt.Errorf("invalid email address: failed %q rule", validateErrs[0].Tag())
		}
		return "", fmt.Errorf("invalid email address: %w", err)
	}
	return r.Address, nil
}

func (s *Sender) SendOTP(ctx context.Context, recipient string, code string) error {
	subject := s.cfg.Subject
	if subject == "" {
		subject = defaultSubject
	}
	// the code only appears in the subject where the template asks for it
	subject = strings.ReplaceAll(subject, otp.CodePlaceholder, code)
	text := otp.FormatMessage(s.messageTemplate, code)

	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Body: &types.Body{
				Text: &types.Content{
					Data:    &text,
					Charset: aws.String("UTF-8"),
				},
			},
			Subject: &types.Content{
				Data:    &subject,
				Charset: aws.String("UTF-8"),
			},
		},
		Source: &s.cfg.Source,
	}
	if s.cfg.SourceARN != "" {
		input.SourceArn = &s.cfg.SourceARN
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
