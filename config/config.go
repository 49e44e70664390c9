package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Mode      Mode            `toml:"-"`
	Region    string          `toml:"region"`
	Service   ServiceConfig   `toml:"service"`
	Endpoints EndpointsConfig `toml:"endpoints"`
	Challenge ChallengeConfig `toml:"challenge"`
	SNS       SNSConfig       `toml:"sns"`
	SES       SESConfig       `toml:"ses"`
	SignUp    SignUpConfig    `toml:"signup"`
	Cache     CacheConfig     `toml:"cache"`
}

type ServiceConfig struct {
	Mode      string `toml:"mode"`
	Port      uint32 `toml:"port"`
	VSock     bool   `toml:"vsock"`
	ProxyHost string `toml:"proxy_host"`
	ProxyPort uint32 `toml:"proxy_port"`
}

type EndpointsConfig struct {
	AWSEndpoint    string `toml:"aws_endpoint"`
	MetadataServer string `toml:"metadata_server"`
}

// ChallengeConfig drives the custom challenge triggers. Zero values are replaced by
// defaults in New.
type ChallengeConfig struct {
	Name            string `toml:"name"`
	MaxAttempts     int    `toml:"max_attempts"`
	CodeLength      int    `toml:"code_length"`
	Channel         string `toml:"channel"`
	RegionHint      string `toml:"region_hint"`
	MessageTemplate string `toml:"message_template"`
}

type SNSConfig struct {
	Region        string `toml:"region"`
	SenderID      string `toml:"sender_id"`
	SMSType       string `toml:"sms_type"`
	AccessRoleARN string `toml:"access_role_arn"`
}

type SESConfig struct {
	Region        string `toml:"region"`
	Source        string `toml:"source"`
	SourceARN     string `toml:"source_arn"`
	AccessRoleARN string `toml:"access_role_arn"`
	Subject       string `toml:"subject"`
}

type SignUpConfig struct {
	AutoVerifyPhone bool `toml:"auto_verify_phone"`
	AutoVerifyEmail bool `toml:"auto_verify_email"`
}

type CacheConfig struct {
	RecipientsSize uint32 `toml:"recipients_size"`
}

const (
	DefaultChallengeName   = "CUSTOM_CHALLENGE"
	DefaultMaxAttempts     = 3
	DefaultCodeLength      = 6
	DefaultChannel         = "sms"
	DefaultRegionHint      = "JP"
	DefaultMessageTemplate = "検証コード：　{code}"
	DefaultSMSType         = "Transactional"
	DefaultRecipientsSize  = 1024
)

func New() (*Config, error) {
	fileName := os.Getenv("CONFIG")
	var cfg Config
	if _, err := toml.DecodeFile(fileName, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes a TOML document, for use in tests and embedded configurations.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) init() error {
	var mode Mode
	switch cfg.Service.Mode {
	case "local":
		mode = LocalMode
	case "dev", "development":
		mode = DevelopmentMode
	case "prod", "production":
		mode = ProductionMode
	default:
		return fmt.Errorf("config service.mode value is invalid, must be one of \"local\", \"development\", \"dev\", \"production\" or \"prod\"")
	}
	cfg.Mode = mode
	cfg.Service.Mode = mode.String()

	cfg.SetDefaults()

	switch cfg.Challenge.Channel {
	case "sms", "email":
	default:
		return fmt.Errorf("config challenge.channel value is invalid, must be one of \"sms\" or \"email\"")
	}
	if cfg.Challenge.MaxAttempts < 1 {
		return fmt.Errorf("config challenge.max_attempts must be positive")
	}
	if cfg.Challenge.CodeLength < 1 {
		return fmt.Errorf("config challenge.code_length must be positive")
	}
	return nil
}

// SetDefaults fills in every unset challenge, SNS and cache value.
func (cfg *Config) SetDefaults() {
	if cfg.Challenge.Name == "" {
		cfg.Challenge.Name = DefaultChallengeName
	}
	if cfg.Challenge.MaxAttempts == 0 {
		cfg.Challenge.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Challenge.CodeLength == 0 {
		cfg.Challenge.CodeLength = DefaultCodeLength
	}
	if cfg.Challenge.Channel == "" {
		cfg.Challenge.Channel = DefaultChannel
	}
	if cfg.Challenge.RegionHint == "" {
		cfg.Challenge.RegionHint = DefaultRegionHint
	}
	if cfg.Challenge.MessageTemplate == "" {
		cfg.Challenge.MessageTemplate = DefaultMessageTemplate
	}
	if cfg.SNS.SMSType == "" {
		cfg.SNS.SMSType = DefaultSMSType
	}
	if cfg.Cache.RecipientsSize == 0 {
		cfg.Cache.RecipientsSize = DefaultRecipientsSize
	}
}

type Mode uint32

const (
	LocalMode Mode = iota
	DevelopmentMode
	ProductionMode
)

func (m Mode) String() string {
	switch m {
	case LocalMode:
		return "local"
	case DevelopmentMode:
		return "development"
	case ProductionMode:
		return "production"
	default:
		return ""
	}
}
