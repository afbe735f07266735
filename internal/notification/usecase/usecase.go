package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type repoMail interface {
	Send(ctx context.Context, msg mail.Message) error
}

type dedupe interface {
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...idempotency.Option) error
}

// DeliveryPolicy controls how hard a code email is retried and how long an
// event id is remembered.
type DeliveryPolicy struct {
	MaxRetries uint64
	RetryBase  time.Duration
	RetryCap   time.Duration
	DedupeTTL  time.Duration
}

const (
	defaultMaxRetries = 4
	defaultRetryBase  = 500 * time.Millisecond
	defaultRetryCap   = 30 * time.Second
	defaultDedupeTTL  = time.Hour
)

// LoadDeliveryPolicy reads modules.notification.delivery.*.
func LoadDeliveryPolicy(cfg config.Config) DeliveryPolicy {
	p := DeliveryPolicy{
		MaxRetries: defaultMaxRetries,
		RetryBase:  defaultRetryBase,
		RetryCap:   defaultRetryCap,
		DedupeTTL:  defaultDedupeTTL,
	}
	if cfg == nil {
		return p
	}

	if cfg.IsSet("modules.notification.delivery.max_retries") {
		p.MaxRetries = cfg.GetUint64("modules.notification.delivery.max_retries")
	}
	if v := cfg.GetInt64("modules.notification.delivery.retry_base_ms"); v > 0 {
		p.RetryBase = time.Duration(v) * time.Millisecond
	}
	if v := cfg.GetSecond("modules.notification.delivery.retry_cap_seconds"); v > 0 {
		p.RetryCap = v
	}
	if v := cfg.GetMinute("modules.notification.delivery.dedupe_ttl_minutes"); v > 0 {
		p.DedupeTTL = v
	}

	return p
}

type Dependency struct {
	Mail       repoMail
	Dedupe     dedupe
	Config     config.Config
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

type Usecase struct {
	mail      repoMail
	dedupe    dedupe
	cfg       config.Config
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation
	policy    DeliveryPolicy

	delivered metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		mail:      dep.Mail,
		dedupe:    dep.Dedupe,
		cfg:       dep.Config,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
		policy:    LoadDeliveryPolicy(dep.Config),
	}

	meter := s.ins.Meter("notification.usecase")
	s.delivered, _ = meter.Int64Counter("otp.email.delivered", metric.WithDescription("code emails sent"))
	s.failed, _ = meter.Int64Counter("otp.email.failed", metric.WithDescription("code emails that exhausted retries"))
	s.dropped, _ = meter.Int64Counter("otp.email.dropped", metric.WithDescription("otp_issued events that could not be delivered at all"))

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}
