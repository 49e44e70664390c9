package awscreds

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/0xsequence/otp-challenge/o11y"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
)

// ProviderName is reported as the credentials source.
const ProviderName = "EnclaveMetadataProvider"

// defaultLifetime applies when the metadata server does not report an expiration.
const defaultLifetime = time.Hour

// Provider fetches the instance role credentials used to publish codes through SNS and SES
// from the metadata server reachable from the service, using IMDSv2 only.
type Provider struct {
	client *imds.Client
	now    func() time.Time
}

var _ aws.CredentialsProvider = (*Provider)(nil)

func NewProvider(httpClient imds.HTTPClient, baseURL string) *Provider {
	client := imds.New(imds.Options{
		HTTPClient:     httpClient,
		Endpoint:       baseURL,
		EnableFallback: aws.FalseTernary,
	})
	return &Provider{client: client, now: time.Now}
}

type instanceCredentials struct {
	Code            string `json:"Code"`
	Message         string `json:"Message"`
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	Token           string `json:"Token"`
	Expiration      string `json:"Expiration"`
}

// Retrieve implements aws.CredentialsProvider.
func (p *Provider) Retrieve(ctx context.Context) (creds aws.Credentials, err error) {
	ctx, span := o11y.Trace(ctx, "awscreds.Retrieve")
	defer func() {
		span.RecordError(err)
		span.End()
	}()

	role, err := p.roleName(ctx)
	if err != nil {
		return aws.Credentials{}, err
	}
	span.SetAnnotation("role", role)

	res, err := p.client.GetMetadata(ctx, &imds.GetMetadataInput{
		Path: "iam/security-credentials/" + role,
	})
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("fetch credentials for role %q: %w", role, err)
	}
	defer res.Content.Close()

	var ic instanceCredentials
	if err := json.NewDecoder(res.Content).Decode(&ic); err != nil {
		return aws.Credentials{}, fmt.Errorf("decode credentials for role %q: %w", role, err)
	}
	if ic.Code != "" && ic.Code != "Success" {
		return aws.Credentials{}, fmt.Errorf("credentials for role %q unavailable: %s: %s", role, ic.Code, ic.Message)
	}
	if ic.AccessKeyID == "" || ic.SecretAccessKey == "" {
		return aws.Credentials{}, fmt.Errorf("credentials for role %q are incomplete", role)
	}

	expires := p.now().Add(defaultLifetime)
	if ic.Expiration != "" {
		t, err := time.Parse(time.RFC3339, ic.Expiration)
		if err != nil {
			return aws.Credentials{}, fmt.Errorf("parse expiration %q: %w", ic.Expiration, err)
		}
		expires = t
	}
	span.SetAnnotation("expires", expires.UTC().Format(time.RFC3339))

	return aws.Credentials{
		AccessKeyID:     ic.AccessKeyID,
		SecretAccessKey: ic.SecretAccessKey,
		SessionToken:    ic.Token,
		Source:          ProviderName,
		CanExpire:       true,
		Expires:         expires,
	}, nil
}

// roleName returns the first role listed by the metadata server.
func (p *Provider) roleName(ctx context.Context) (string, error) {
	res, err := p.client.GetMetadata(ctx, &imds.GetMetadataInput{
		Path: "iam/security-credentials/",
	})
	if err != nil {
		return "", fmt.Errorf("list instance roles: %w", err)
	}
	defer res.Content.Close()

	scanner := bufio.NewScanner(res.Content)
	for scanner.Scan() {
		if role := strings.TrimSpace(scanner.Text()); role != "" {
			return role, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read instance roles: %w", err)
	}
	return "", fmt.Errorf("no instance role attached")
}
