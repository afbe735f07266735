package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"go.opentelemetry.io/otel/trace"
)

// AttemptLedger records code issuances per identity and purpose.
// Counts only include rows with issuedAt strictly after since.
type AttemptLedger interface {
	RecordIssuance(ctx context.Context, rec entity.AttemptRecord) error
	// Reserve appends rec only while fewer than limit rows count after since,
	// atomically per identity and purpose. It returns the count including rec,
	// or the current count and false when the ledger is full.
	Reserve(ctx context.Context, rec entity.AttemptRecord, since time.Time, limit int) (int, bool, error)
	// Remove takes back a reserved row whose issuance did not complete.
	Remove(ctx context.Context, rec entity.AttemptRecord) error
	CountRecent(ctx context.Context, identity string, purpose entity.Purpose, since time.Time) (int, error)
	// OldestRecent returns goerror.ErrNotFound when nothing was issued after since.
	OldestRecent(ctx context.Context, identity string, purpose entity.Purpose, since time.Time) (time.Time, error)
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

// OTPRecordStore keeps at most one record per identity and purpose.
// Get and IncrementAttempt return goerror.ErrNotFound when there is none.
type OTPRecordStore interface {
	// Put replaces any existing record atomically.
	Put(ctx context.Context, rec entity.OTPRecord) error
	Get(ctx context.Context, identity string, purpose entity.Purpose) (*entity.OTPRecord, error)
	// IncrementAttempt atomically adds one verify attempt and returns the updated record.
	IncrementAttempt(ctx context.Context, identity string, purpose entity.Purpose) (*entity.OTPRecord, error)
	// Consume deletes the record only if it still holds codeHash and reports
	// whether this call removed it.
	Consume(ctx context.Context, identity string, purpose entity.Purpose, codeHash string) (bool, error)
	Delete(ctx context.Context, identity string, purpose entity.Purpose) error
	// PurgeExpired removes records whose expiry is before the given time.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// AccountStore persists accounts. Lookups return goerror.ErrNotFound and
// CreateAccount returns goerror.ErrConflict for a taken email.
type AccountStore interface {
	GetAccountByEmail(ctx context.Context, email string) (*entity.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*entity.Account, error)
	CreateAccount(ctx context.Context, acc entity.Account) error
	// UpdatePendingAccount refreshes profile and password of an unverified account.
	UpdatePendingAccount(ctx context.Context, acc entity.Account) error
	// ActivateAccount moves an unverified account to active.
	ActivateAccount(ctx context.Context, id int64, at time.Time) error
	UpdateAccountProfile(ctx context.Context, id int64, fullName, phone string, at time.Time) error
}

// EventPublisher hands issued codes over to the delivery side.
type EventPublisher interface {
	PublishOTPIssued(ctx context.Context, ev event.OTPIssued) error
}

type Dependency struct {
	Ledger     AttemptLedger
	Records    OTPRecordStore
	Accounts   AccountStore
	Publisher  EventPublisher
	Codes      CodeGenerator
	Validator  validator.Validator
	Config     config.Config
	HMAC       hash.Hash
	Password   hash.Hash
	UID        uid.NumberID
	UUID       uid.StringID
	Clock      clock.Clocker
	JWT        jwt.JWT
	Instrument instrument.Instrumentation
}

// Usecase implements the account flows around the one-time code engine.
type Usecase struct {
	otp       *OTPService
	accounts  AccountStore
	validator validator.Validator
	cfg       config.Config
	password  hash.Hash
	uid       uid.NumberID
	clock     clock.Clocker
	jwt       jwt.JWT
	ins       instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		otp:       NewOTPService(dep),
		accounts:  dep.Accounts,
		validator: dep.Validator,
		cfg:       dep.Config,
		password:  dep.Password,
		uid:       dep.UID,
		clock:     dep.Clock,
		jwt:       dep.JWT,
		ins:       dep.Instrument,
	}
}

// OTP exposes the engine, mainly for the purge job.
func (s *Usecase) OTP() *OTPService {
	return s.otp
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}
