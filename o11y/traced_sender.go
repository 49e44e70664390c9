package o11y

import (
	"context"
)

type sender interface {
	NormalizeRecipient(ctx context.Context, recipient string) (string, error)
	SendOTP(ctx context.Context, recipient string, code string) error
}

type tracedSender struct {
	channel string
	sender
}

// NewTracedSender wraps a one-time code sender with spans and delivery metrics.
func NewTracedSender(channel string, s sender) *tracedSender {
	return &tracedSender{channel: channel, sender: s}
}

func (t *tracedSender) NormalizeRecipient(ctx context.Context, recipient string) (_ string, err error) {
	ctx, span := Trace(ctx, t.channel+".Sender.NormalizeRecipient", WithAnnotation("channel", t.channel))
	defer func() {
		span.RecordError(err)
		span.End()
	}()
	return t.sender.NormalizeRecipient(ctx, recipient)
}

func (t *tracedSender) SendOTP(ctx context.Context, recipient string, code string) (err error) {
	ctx, span := Trace(ctx, t.channel+".Sender.SendOTP", WithSpanKind(SpanKindClient), WithAnnotation("channel", t.channel))
	defer func() {
		span.RecordError(err)
		span.End()
		deliveries.WithLabelValues(t.channel, outcome(err)).Inc()
		deliveryDuration.WithLabelValues(t.channel).Observe(span.Duration().Seconds())
	}()
	return t.sender.SendOTP(ctx, recipient, code)
}
