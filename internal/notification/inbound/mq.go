package inbound

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

const (
	ConsumerOTPIssuedEmail = "otp_issued.email"

	defaultConsumerGroup = "otpgate-notification"
	defaultConcurrency   = 4
)

// RegisterMQConsumer starts every consumer enabled by
// modules.notification.consumer_names (all of them when the list is empty)
// and returns how many were started.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	consumer messaging.Consumer,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) int {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.notification.consumer_names")

	group := cfg.GetString("modules.notification.consumer_group")
	if group == "" {
		group = defaultConsumerGroup
	}
	concurrency := cfg.GetInt("modules.notification.concurrency")
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	var consumers = []struct {
		name    string
		topic   string
		handler messaging.Handler
	}{
		{
			name:    ConsumerOTPIssuedEmail,
			topic:   event.TopicOTPIssued,
			handler: mqHandler.OTPIssued,
		},
	}

	started := 0
	for _, c := range consumers {
		if len(enabled) > 0 && !slices.Contains(enabled, c.name) {
			continue
		}
		ok := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", c.name)
			err := consumer.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithGroup(group),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
			)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		if ok {
			started++
		}
	}

	return started
}
