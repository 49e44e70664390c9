package sms

import (
	"context"
	"fmt"

	"github.com/0xsequence/otp-challenge/auth/otp"
	"github.com/0xsequence/otp-challenge/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/goware/cachestore"
)

type Client interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NewClient returns an SNS client for the configured region, assuming the access role if
// one is set.
func NewClient(awsCfg aws.Config, cfg config.SNSConfig) *sns.Client {
	awsCfg = awsCfg.Copy()
	if cfg.AccessRoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		creds := stscreds.NewAssumeRoleProvider(stsClient, cfg.AccessRoleARN)
		awsCfg.Credentials = aws.NewCredentialsCache(creds)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}
	return sns.NewFromConfig(awsCfg)
}

// Sender delivers one-time codes as text messages through Amazon SNS.
type Sender struct {
	client          Client
	cfg             config.SNSConfig
	regionHint      string
	messageTemplate string
	recipients      cachestore.Store[string]
}

var _ otp.Sender = (*Sender)(nil)

// NewSender returns a Sender. recipients caches normalized phone numbers and may be nil.
func NewSender(
	client Client,
	cfg config.SNSConfig,
	challengeCfg config.ChallengeConfig,
	recipients cachestore.Store[string],
) *Sender {
	return &Sender{
		client:          client,
		cfg:             cfg,
		regionHint:      challengeCfg.RegionHint,
		messageTemplate: challengeCfg.MessageTemplate,
		recipients:      recipients,
	}
}

func (s *Sender) NormalizeRecipient(ctx context.Context, recipient string) (string, error) {
	if s.recipients == nil {
		return Normalize(recipient, s.regionHint)
	}
	return s.recipients.GetOrSetWithLock(ctx, s.regionHint+":"+recipient, func(context.Context, string) (string, error) {
		return Normalize(recipient, s.regionHint)
	})
}

func (s *Sender) SendOTP(ctx context.Context, recipient string, code string) error {
	attrs := map[string]types.MessageAttributeValue{}
	if s.cfg.SMSType != "" {
		attrs["AWS.SNS.SMS.SMSType"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.cfg.SMSType),
		}
	}
	if s.cfg.SenderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.cfg.SenderID),
		}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		Message:           aws.String(otp.FormatMessage(s.messageTemplate, code)),
		PhoneNumber:       aws.String(recipient),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
