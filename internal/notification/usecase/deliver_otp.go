package usecase

import (
	"bytes"
	"context"
	"errors"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpgate/internal/notification/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type DeliverOTPInput struct {
	EventID       string `validate:"required"`
	Email         string `validate:"required,email"`
	Name          string `validate:"omitempty,max=100"`
	Purpose       string `validate:"required,oneof=registration login"`
	Code          string `validate:"required,otpcode"`
	ExpiryMinutes int    `validate:"required,gt=0"`
}

const dedupePrefix = "notification:otp_issued:"

// DeliverOTP emails a freshly issued code. Events that can never be delivered
// are dropped with a nil error; a nil error is also returned for an event id
// that was already handled. Any other error means the broker may redeliver.
func (s *Usecase) DeliverOTP(ctx context.Context, in DeliverOTPInput) error {
	ctx, span := s.startSpan(ctx, "DeliverOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "event_id", in.EventID, "error", err)
		s.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "invalid")))
		return nil
	}

	msg, err := s.render(in)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render otp email", "event_id", in.EventID, "purpose", in.Purpose, "error", err)
		s.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "template")))
		return nil
	}

	err = s.dedupe.Exec(ctx, dedupePrefix+in.EventID, func(ctx context.Context) error {
		return s.send(ctx, msg)
	},
		idempotency.WithStateTTL(s.policy.DedupeTTL),
		idempotency.WithRetryFailed(),
	)

	purpose := metric.WithAttributes(attribute.String("purpose", in.Purpose))
	switch {
	case err == nil:
		s.delivered.Add(ctx, 1, purpose)
		slog.InfoContext(ctx, "otp email sent", "event_id", in.EventID, "purpose", in.Purpose)
		return nil
	case errors.Is(err, idempotency.ErrAlreadyCompleted), errors.Is(err, idempotency.ErrAlreadyInProgress):
		slog.InfoContext(ctx, "otp email already handled", "event_id", in.EventID, "error", err)
		return nil
	default:
		s.failed.Add(ctx, 1, purpose)
		slog.ErrorContext(ctx, "failed to send otp email", "event_id", in.EventID, "purpose", in.Purpose, "error", err)
		return err
	}
}

// send retries transient mail failures with capped exponential backoff.
func (s *Usecase) send(ctx context.Context, msg mail.Message) error {
	b := retry.NewExponential(s.policy.RetryBase)
	b = retry.WithCappedDuration(s.policy.RetryCap, b)
	b = retry.WithMaxRetries(s.policy.MaxRetries, b)

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := s.mail.Send(ctx, msg)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
		slog.WarnContext(ctx, "otp email attempt failed", "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
}

func isPermanent(err error) bool {
	return errors.Is(err, mail.ErrSMTPNoRecipients) ||
		errors.Is(err, mail.ErrSMTPNoSender) ||
		errors.Is(err, context.Canceled)
}

func (s *Usecase) templateData(in DeliverOTPInput) entity.TemplateData {
	appName := s.cfg.GetString("app.name")
	if appName == "" {
		appName = "otpgate"
	}

	return entity.TemplateData{
		AppName:       appName,
		Name:          in.Name,
		Code:          in.Code,
		ExpiryMinutes: in.ExpiryMinutes,
		SupportEmail:  s.cfg.GetString("modules.notification.support_email"),
		Year:          s.clock.Now().Format("2006"),
	}
}

func (s *Usecase) render(in DeliverOTPInput) (mail.Message, error) {
	tpl, err := entity.TemplateFor(in.Purpose)
	if err != nil {
		return mail.Message{}, err
	}
	data := s.templateData(in)

	subject, err := renderText("subject", tpl.Subject, data)
	if err != nil {
		return mail.Message{}, err
	}
	text, err := renderText("text", tpl.Text, data)
	if err != nil {
		return mail.Message{}, err
	}
	html, err := renderHTML("html", tpl.HTML, data)
	if err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		To:       []string{in.Email},
		Subject:  strings.TrimSpace(subject),
		TextBody: text,
		HTMLBody: html,
	}, nil
}

func renderText(name, src string, data entity.TemplateData) (string, error) {
	t, err := texttemplate.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(name, src string, data entity.TemplateData) (string, error) {
	t, err := htmltemplate.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
