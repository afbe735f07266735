package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

type fakeUsecase struct {
	mu    sync.Mutex
	err   error
	got   []usecase.DeliverOTPInput
	cIDs  []string
	calls chan struct{}
}

func newFakeUsecase() *fakeUsecase {
	return &fakeUsecase{calls: make(chan struct{}, 16)}
}

func (f *fakeUsecase) DeliverOTP(ctx context.Context, in usecase.DeliverOTPInput) error {
	f.mu.Lock()
	f.got = append(f.got, in)
	f.cIDs = append(f.cIDs, instrument.GetCorrelationID(ctx))
	f.mu.Unlock()
	select {
	case f.calls <- struct{}{}:
	default:
	}
	return f.err
}

type fakeMessage struct {
	body    []byte
	headers []messaging.Header
}

func (m fakeMessage) Body() []byte                   { return m.body }
func (m fakeMessage) Key() []byte                    { return nil }
func (m fakeMessage) Headers() []messaging.Header    { return m.headers }
func (m fakeMessage) Topic() string                  { return event.TopicOTPIssued }
func (m fakeMessage) Timestamp() time.Time           { return time.Time{} }
func (m fakeMessage) Ack(ctx context.Context) error  { return nil }
func (m fakeMessage) Nack(ctx context.Context) error { return nil }

func issuedBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(event.OTPIssued{
		EventID:       "evt-9",
		Email:         "ada@example.com",
		Name:          "Ada",
		Purpose:       "login",
		Code:          "123456",
		ExpiryMinutes: 10,
		IssuedAt:      time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestMQHandler_OTPIssued(t *testing.T) {
	errDeliver := errors.New("smtp down")

	tests := []struct {
		name      string
		body      func(t *testing.T) []byte
		headers   []messaging.Header
		ucErr     error
		wantErr   error
		wantCalls int
		wantCID   string
	}{
		{
			name:      "delivers with propagated correlation id",
			body:      issuedBody,
			headers:   []messaging.Header{{Key: event.HeaderCorrelationID, Value: []byte("cid-1")}},
			wantCalls: 1,
			wantCID:   "cid-1",
		},
		{
			name:      "generates correlation id when missing",
			body:      issuedBody,
			wantCalls: 1,
		},
		{
			name:      "usecase error is returned for redelivery",
			body:      issuedBody,
			ucErr:     errDeliver,
			wantErr:   errDeliver,
			wantCalls: 1,
		},
		{
			name: "malformed body is dropped",
			body: func(*testing.T) []byte { return []byte("{not json") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFakeUsecase()
			f.err = tt.ucErr
			h := &MQHandler{uc: f, uuid: uid.NewUUID(), ins: instrument.NewNoop()}

			// Act
			err := h.OTPIssued(context.Background(), fakeMessage{body: tt.body(t), headers: tt.headers})

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("OTPIssued() error = %v, want %v", err, tt.wantErr)
			}
			if len(f.got) != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", len(f.got), tt.wantCalls)
			}
			if tt.wantCalls == 0 {
				return
			}
			want := usecase.DeliverOTPInput{
				EventID:       "evt-9",
				Email:         "ada@example.com",
				Name:          "Ada",
				Purpose:       "login",
				Code:          "123456",
				ExpiryMinutes: 10,
			}
			if f.got[0] != want {
				t.Fatalf("input = %+v, want %+v", f.got[0], want)
			}
			if f.cIDs[0] == "" {
				t.Fatal("correlation id is empty")
			}
			if tt.wantCID != "" && f.cIDs[0] != tt.wantCID {
				t.Fatalf("correlation id = %q, want %q", f.cIDs[0], tt.wantCID)
			}
		})
	}
}

func TestRegisterMQConsumer(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want int
	}{
		{name: "all consumers by default", yaml: "app:\n  name: otpgate\n", want: 1},
		{name: "explicitly enabled", yaml: "modules:\n  notification:\n    consumer_names: otp_issued.email\n", want: 1},
		{name: "disabled by list", yaml: "modules:\n  notification:\n    consumer_names: [other]\n", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg, err := config.NewViperFromBytes("yaml", []byte(tt.yaml))
			if err != nil {
				t.Fatalf("config: %v", err)
			}
			ctx, cancel := context.WithCancel(context.Background())
			gm := goroutine.NewManager(4)
			broker := messaging.NewMemory()
			f := newFakeUsecase()

			// Act
			got := RegisterMQConsumer(ctx, cfg, gm, broker, uid.NewUUID(), f, instrument.NewNoop())

			// Assert
			if got != tt.want {
				t.Fatalf("RegisterMQConsumer() = %d, want %d", got, tt.want)
			}
			if tt.want > 0 {
				waitDelivered(t, broker, f)
			}
			cancel()
			if err := gm.Wait(); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		})
	}
}

// waitDelivered republishes until the consumer has subscribed and handled one message.
func waitDelivered(t *testing.T, broker *messaging.Memory, f *fakeUsecase) {
	t.Helper()

	body := issuedBody(t)
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-f.calls:
			return
		case <-deadline:
			t.Fatal("message was not consumed")
		case <-tick.C:
			if _, err := broker.Publish(context.Background(), event.TopicOTPIssued, messaging.OutgoingMessage{Body: body}); err != nil {
				t.Fatalf("Publish() error = %v", err)
			}
		}
	}
}
