package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

type uc interface {
	DeliverOTP(ctx context.Context, in usecase.DeliverOTPInput) error
}

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	if cID, ok := messaging.HeaderValue(headers, event.HeaderCorrelationID); ok && cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// OTPIssued never logs the body: it carries the plaintext code.
func (h *MQHandler) OTPIssued(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "OTPIssued")
	defer span.End()

	var payload event.OTPIssued
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp issued", "topic", msg.Topic(), "error", err)
		return nil
	}

	slog.InfoContext(ctx, "consume: otp issued", "event_id", payload.EventID, "purpose", payload.Purpose)

	if err := h.uc.DeliverOTP(ctx, usecase.DeliverOTPInput{
		EventID:       payload.EventID,
		Email:         payload.Email,
		Name:          payload.Name,
		Purpose:       payload.Purpose,
		Code:          payload.Code,
		ExpiryMinutes: payload.ExpiryMinutes,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume otp issued", "event_id", payload.EventID, "error", err)
		return err
	}

	return nil
}
