package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewSMTP_RequiresHostPort(t *testing.T) {
	if _, err := NewSMTP(SMTPConfig{Host: "localhost"}); !errors.Is(err, ErrSMTPHostPortRequired) {
		t.Fatalf("error = %v, want ErrSMTPHostPortRequired", err)
	}
}

func TestBuildMessage(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		msg      Message
		wantErr  error
		contains []string
	}{
		{
			name:    "no recipients",
			from:    "noreply@otpgate.local",
			msg:     Message{Subject: "x"},
			wantErr: ErrSMTPNoRecipients,
		},
		{
			name:    "no sender",
			msg:     Message{To: []string{"a@b.com"}},
			wantErr: ErrSMTPNoSender,
		},
		{
			name:     "text only",
			from:     "noreply@otpgate.local",
			msg:      Message{To: []string{"a@b.com"}, Subject: "Your code", TextBody: "123456"},
			contains: []string{"From: noreply@otpgate.local", "To: a@b.com", "Subject: Your code", "text/plain", "123456"},
		},
		{
			name:     "text and html",
			from:     "noreply@otpgate.local",
			msg:      Message{From: "ops@otpgate.local", To: []string{"a@b.com"}, TextBody: "plain", HTMLBody: "<b>rich</b>"},
			contains: []string{"From: ops@otpgate.local", "multipart/alternative", "text/html"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			m, err := buildMessage(tt.from, tt.msg)

			// Assert
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildMessage() error = %v", err)
			}

			var buf bytes.Buffer
			if _, err := m.WriteTo(&buf); err != nil {
				t.Fatalf("WriteTo() error = %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("message missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestSMTP_SendCanceled(t *testing.T) {
	s, err := NewSMTP(SMTPConfig{Host: "localhost", Port: 2525, From: "noreply@otpgate.local"})
	if err != nil {
		t.Fatalf("NewSMTP() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Send(ctx, Message{To: []string{"a@b.com"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Send() error = %v, want context.Canceled", err)
	}
}
