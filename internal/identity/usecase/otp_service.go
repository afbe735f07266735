package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type IssueInput struct {
	Identity string `validate:"required,email"`
	Purpose  entity.Purpose
	// Name is the greeting used by the delivery side.
	Name string
}

type IssueOutput struct {
	OTPExpiryMinutes  int
	AttemptsRemaining int
}

type VerifyInput struct {
	Identity string `validate:"required,email"`
	Purpose  entity.Purpose
	Code     string `validate:"required,otpcode"`
}

// OTPService issues and verifies one-time codes under a rolling daily quota.
type OTPService struct {
	ledger    AttemptLedger
	records   OTPRecordStore
	publisher EventPublisher
	codes     CodeGenerator
	validator validator.Validator
	cfg       config.Config
	hmac      hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	clock     clock.Clocker
	ins       instrument.Instrumentation

	issued        metric.Int64Counter
	quotaExceeded metric.Int64Counter
	verified      metric.Int64Counter
	verifyFailed  metric.Int64Counter
}

func NewOTPService(dep Dependency) *OTPService {
	s := &OTPService{
		ledger:    dep.Ledger,
		records:   dep.Records,
		publisher: dep.Publisher,
		codes:     dep.Codes,
		validator: dep.Validator,
		cfg:       dep.Config,
		hmac:      dep.HMAC,
		uid:       dep.UID,
		uuid:      dep.UUID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
	}
	if s.codes == nil {
		s.codes = NewRandomCode()
	}

	meter := s.ins.Meter("identity.usecase")
	s.issued, _ = meter.Int64Counter("otp.issued", metric.WithDescription("codes issued"))
	s.quotaExceeded, _ = meter.Int64Counter("otp.quota_exceeded", metric.WithDescription("issuances rejected by the daily cap"))
	s.verified, _ = meter.Int64Counter("otp.verified", metric.WithDescription("codes verified successfully"))
	s.verifyFailed, _ = meter.Int64Counter("otp.verify_failed", metric.WithDescription("rejected verifications"))

	return s
}

// Policy returns the limits currently in effect.
func (s *OTPService) Policy() OTPPolicy {
	return LoadOTPPolicy(s.cfg)
}

// Issue generates a fresh code, replaces any live code of the same pair and
// hands the plaintext to the publisher. It never returns the code.
func (s *OTPService) Issue(ctx context.Context, in IssueInput) (*IssueOutput, error) {
	ctx, span := s.startSpan(ctx, "Issue")
	defer span.End()

	in.Identity = entity.NormalizeIdentity(in.Identity)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if !in.Purpose.IsValid() {
		return nil, goerror.NewInvalidInput(nil, "purpose", "purpose is not supported")
	}

	policy := s.Policy()
	now := s.clock.Now()
	since := now.Add(-policy.Window)
	attrs := metric.WithAttributes(attribute.String("purpose", in.Purpose.String()))

	attempt := entity.AttemptRecord{
		ID:       s.uid.Generate(),
		Identity: in.Identity,
		Purpose:  in.Purpose,
		IssuedAt: now,
	}
	count, ok, err := s.ledger.Reserve(ctx, attempt, since, policy.DailyCap)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo reserve issuance", "purpose", in.Purpose.String(), "error", err)
		return nil, transient(err)
	}
	if !ok {
		s.quotaExceeded.Add(ctx, 1, attrs)
		return nil, errQuotaExceeded(s.retryAfter(ctx, in, since, now, policy))
	}

	code, err := s.codes.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate code", "error", err)
		s.release(ctx, attempt)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash code", "error", err)
		s.release(ctx, attempt)
		return nil, goerror.NewServer(err)
	}

	err = s.records.Put(ctx, entity.OTPRecord{
		Identity:  in.Identity,
		Purpose:   in.Purpose,
		CodeHash:  string(codeHash),
		IssuedAt:  now,
		ExpiresAt: now.Add(policy.CodeTTL),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo put otp record", "purpose", in.Purpose.String(), "error", err)
		s.release(ctx, attempt)
		return nil, transient(err)
	}

	err = s.publisher.PublishOTPIssued(ctx, event.OTPIssued{
		EventID:       s.uuid.Generate(),
		Email:         in.Identity,
		Name:          in.Name,
		Purpose:       in.Purpose.String(),
		Code:          code,
		ExpiryMinutes: policy.CodeTTLMinutes(),
		IssuedAt:      now,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to publish otp issued", "purpose", in.Purpose.String(), "error", err)
	}

	s.issued.Add(ctx, 1, attrs)

	return &IssueOutput{
		OTPExpiryMinutes:  policy.CodeTTLMinutes(),
		AttemptsRemaining: max(0, policy.DailyCap-count),
	}, nil
}

// CheckQuota fails with the quota error when no issuance is left in the
// window. Callers use it before side effects that only make sense when a
// code can follow, Issue still enforces the cap on its own.
func (s *OTPService) CheckQuota(ctx context.Context, identity string, purpose entity.Purpose) error {
	policy := s.Policy()
	now := s.clock.Now()
	since := now.Add(-policy.Window)
	in := IssueInput{Identity: entity.NormalizeIdentity(identity), Purpose: purpose}

	count, err := s.ledger.CountRecent(ctx, in.Identity, in.Purpose, since)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count recent issuance", "purpose", purpose.String(), "error", err)
		return transient(err)
	}
	if count >= policy.DailyCap {
		s.quotaExceeded.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", purpose.String())))
		return errQuotaExceeded(s.retryAfter(ctx, in, since, now, policy))
	}
	return nil
}

// release gives a reserved issuance back after a failure that left no code.
func (s *OTPService) release(ctx context.Context, attempt entity.AttemptRecord) {
	if err := s.ledger.Remove(context.WithoutCancel(ctx), attempt); err != nil {
		slog.WarnContext(ctx, "failed to repo remove reserved issuance", "purpose", attempt.Purpose.String(), "error", err)
	}
}

// retryAfter is the number of seconds until the oldest counted issuance
// leaves the window. It returns 0 when that cannot be determined.
func (s *OTPService) retryAfter(ctx context.Context, in IssueInput, since, now time.Time, policy OTPPolicy) int {
	oldest, err := s.ledger.OldestRecent(ctx, in.Identity, in.Purpose, since)
	if err != nil {
		if !errors.Is(err, goerror.ErrNotFound) {
			slog.WarnContext(ctx, "failed to repo oldest recent issuance", "error", err)
		}
		return 0
	}

	wait := oldest.Add(policy.Window).Sub(now)
	return max(1, int(math.Ceil(wait.Seconds())))
}

// Verify checks a submitted code. Every well-formed submission against a
// live record consumes one attempt, and a success consumes the record.
func (s *OTPService) Verify(ctx context.Context, in VerifyInput) error {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	in.Identity = entity.NormalizeIdentity(in.Identity)
	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}
	if !in.Purpose.IsValid() {
		return goerror.NewInvalidInput(nil, "purpose", "purpose is not supported")
	}

	err := s.verify(ctx, in)
	if err != nil {
		var reason string
		switch {
		case errors.Is(err, entity.ErrInvalidCode):
			reason = "invalid_code"
		case errors.Is(err, entity.ErrCodeExpired):
			reason = "expired"
		case errors.Is(err, entity.ErrAttemptsExhausted):
			reason = "attempts_exhausted"
		case errors.Is(err, entity.ErrNoActiveCode):
			reason = "no_active_code"
		default:
			return err
		}
		s.verifyFailed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("purpose", in.Purpose.String()),
			attribute.String("reason", reason),
		))
		return err
	}

	s.verified.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", in.Purpose.String())))
	return nil
}

func (s *OTPService) verify(ctx context.Context, in VerifyInput) error {
	policy := s.Policy()
	now := s.clock.Now()

	rec, err := s.records.Get(ctx, in.Identity, in.Purpose)
	if errors.Is(err, goerror.ErrNotFound) {
		return errNoActiveCode
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get otp record", "purpose", in.Purpose.String(), "error", err)
		return transient(err)
	}

	if rec.Expired(now) {
		s.discard(ctx, in)
		return errCodeExpired
	}

	rec, err = s.records.IncrementAttempt(ctx, in.Identity, in.Purpose)
	if errors.Is(err, goerror.ErrNotFound) {
		return errNoActiveCode
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo increment verify attempt", "purpose", in.Purpose.String(), "error", err)
		return transient(err)
	}

	if rec.VerifyAttemptsUsed > policy.MaxVerifyAttempts {
		s.discard(ctx, in)
		return errAttemptsExhausted
	}

	if s.hmac.Verify(rec.CodeHash, in.Code) {
		consumed, err := s.records.Consume(ctx, in.Identity, in.Purpose, rec.CodeHash)
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo consume otp record", "purpose", in.Purpose.String(), "error", err)
			return transient(err)
		}
		if !consumed {
			// a concurrent verify or a reissue got there first
			return errNoActiveCode
		}
		return nil
	}

	if rec.VerifyAttemptsUsed >= policy.MaxVerifyAttempts {
		s.discard(ctx, in)
		return errAttemptsExhausted
	}

	return errInvalidCode(policy.MaxVerifyAttempts - rec.VerifyAttemptsUsed)
}

func (s *OTPService) discard(ctx context.Context, in VerifyInput) {
	if err := s.records.Delete(ctx, in.Identity, in.Purpose); err != nil {
		slog.WarnContext(ctx, "failed to repo delete otp record", "purpose", in.Purpose.String(), "error", err)
	}
}

// Purge drops ledger rows outside the window and records past retention.
func (s *OTPService) Purge(ctx context.Context) (attempts, records int64, err error) {
	ctx, span := s.startSpan(ctx, "Purge")
	defer span.End()

	policy := s.Policy()
	now := s.clock.Now()

	attempts, err = s.ledger.PurgeBefore(ctx, now.Add(-policy.Window))
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo purge attempts", "error", err)
		return 0, 0, transient(err)
	}

	records, err = s.records.PurgeExpired(ctx, now.Add(-policy.RecordRetention))
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo purge otp records", "error", err)
		return attempts, 0, transient(err)
	}

	return attempts, records, nil
}

func (s *OTPService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, "otp."+name)
}
