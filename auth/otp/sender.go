package otp

import (
	"context"
)

// Sender delivers one-time codes through a single channel.
type Sender interface {
	NormalizeRecipient(ctx context.Context, recipient string) (string, error)
	SendOTP(ctx context.Context, recipient string, code string) error
}
