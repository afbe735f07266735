package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

type capturePublisher struct {
	destination string
	msg         messaging.OutgoingMessage
	err         error
}

func (p *capturePublisher) Publish(_ context.Context, destination string, msg messaging.OutgoingMessage) (messaging.PublishResult, error) {
	p.destination = destination
	p.msg = msg
	return messaging.PublishResult{Topic: destination}, p.err
}

func TestMessaging_PublishOTPIssued(t *testing.T) {
	// Arrange
	pub := &capturePublisher{}
	m := NewMessaging(pub, instrument.NewNoop())
	ctx := instrument.SetCorrelationID(context.Background(), "cid-1")
	ev := event.OTPIssued{
		EventID: "evt-1", Email: "a@b.com", Name: "Ann", Purpose: "login",
		Code: "123456", ExpiryMinutes: 10, IssuedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	// Act
	err := m.PublishOTPIssued(ctx, ev)

	// Assert
	if err != nil {
		t.Fatalf("PublishOTPIssued() error = %v", err)
	}
	if pub.destination != event.TopicOTPIssued || string(pub.msg.Key) != "a@b.com" {
		t.Fatalf("published to %q with key %q", pub.destination, pub.msg.Key)
	}
	if cid, _ := messaging.HeaderValue(pub.msg.Headers, event.HeaderCorrelationID); cid != "cid-1" {
		t.Fatalf("correlation header = %q; want cid-1", cid)
	}
	var got event.OTPIssued
	if err := json.Unmarshal(pub.msg.Body, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !got.IssuedAt.Equal(ev.IssuedAt) {
		t.Fatalf("issued_at = %v; want %v", got.IssuedAt, ev.IssuedAt)
	}
	got.IssuedAt = ev.IssuedAt
	if got != ev {
		t.Fatalf("body = %+v; want %+v", got, ev)
	}
}

func TestMessaging_PublishOTPIssued_Error(t *testing.T) {
	// Arrange
	want := errors.New("broker down")
	m := NewMessaging(&capturePublisher{err: want}, instrument.NewNoop())

	// Act
	err := m.PublishOTPIssued(context.Background(), event.OTPIssued{EventID: "evt-1"})

	// Assert
	if !errors.Is(err, want) {
		t.Fatalf("PublishOTPIssued() error = %v; want %v", err, want)
	}
}
