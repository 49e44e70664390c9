package awscreds

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// StaticProvider implements aws.CredentialsProvider with fixed credentials, for use against
// local AWS emulators.
type StaticProvider struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

func (p *StaticProvider) Retrieve(context.Context) (aws.Credentials, error) {
	return aws.Credentials{
		AccessKeyID:     p.AccessKeyID,
		SecretAccessKey: p.SecretAccessKey,
		SessionToken:    p.SessionToken,
		Source:          "StaticProvider",
	}, nil
}
