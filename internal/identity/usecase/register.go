package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type RegisterRequestInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
	FullName string `validate:"required,min=2,max=100"`
	Phone    string `validate:"omitempty,e164"`
}

// OTPIssued is returned by every operation that sends a code.
type OTPIssued struct {
	OTPExpiryMinutes  int
	AttemptsRemaining int
}

func (s *Usecase) RequestRegistrationOTP(ctx context.Context, in RegisterRequestInput) (*OTPIssued, error) {
	ctx, span := s.startSpan(ctx, "RequestRegistrationOTP")
	defer span.End()

	in.Email = entity.NormalizeIdentity(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	acc, err := s.accounts.GetAccountByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return nil, transient(err)
	}

	if acc != nil {
		switch acc.Status {
		case entity.AccountStatusActive:
			slog.WarnContext(ctx, "registration requested for active account", "account_id", acc.ID)
			return nil, errAlreadyRegistered
		case entity.AccountStatusUnverified:
		default:
			slog.WarnContext(ctx, "registration requested for blocked account", "account_id", acc.ID, "status", acc.Status.String())
			return nil, errAccountBanned
		}
	}

	// the pending account only changes when a code can follow
	if err := s.otp.CheckQuota(ctx, in.Email, entity.PurposeRegistration); err != nil {
		return nil, err
	}

	passwordHash, err := s.password.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	if acc != nil {
		acc.FullName = in.FullName
		acc.Phone = in.Phone
		acc.PasswordHash = string(passwordHash)
		acc.UpdatedAt = now

		if err := s.accounts.UpdatePendingAccount(ctx, *acc); err != nil {
			slog.ErrorContext(ctx, "failed to repo update pending account", "account_id", acc.ID, "error", err)
			return nil, transient(err)
		}
	} else {
		err = s.accounts.CreateAccount(ctx, entity.Account{
			ID:           s.uid.Generate(),
			Email:        in.Email,
			FullName:     in.FullName,
			Phone:        in.Phone,
			PasswordHash: string(passwordHash),
			Status:       entity.AccountStatusUnverified,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if errors.Is(err, goerror.ErrConflict) {
			return nil, errAlreadyRegistered
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo create account", "email", in.Email, "error", err)
			return nil, transient(err)
		}
	}

	return s.issue(ctx, in.Email, entity.PurposeRegistration, in.FullName)
}

type RegisterVerifyInput struct {
	Email string
	Code  string
}

func (s *Usecase) VerifyRegistrationOTP(ctx context.Context, in RegisterVerifyInput) (*entity.Session, error) {
	ctx, span := s.startSpan(ctx, "VerifyRegistrationOTP")
	defer span.End()

	in.Email = entity.NormalizeIdentity(in.Email)

	err := s.otp.Verify(ctx, VerifyInput{Identity: in.Email, Purpose: entity.PurposeRegistration, Code: in.Code})
	if err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetAccountByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "verified registration code without account", "email", in.Email)
		return nil, errNoPendingRegistration
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return nil, transient(err)
	}

	switch acc.Status {
	case entity.AccountStatusUnverified:
		now := s.clock.Now()
		if err := s.accounts.ActivateAccount(ctx, acc.ID, now); err != nil {
			slog.ErrorContext(ctx, "failed to repo activate account", "account_id", acc.ID, "error", err)
			return nil, transient(err)
		}
		acc.Status = entity.AccountStatusActive
		acc.VerifiedAt = &now
	case entity.AccountStatusActive:
	default:
		return nil, errAccountBanned
	}

	return s.mintSession(ctx, acc)
}

type RegisterResendInput struct {
	Email string `validate:"required,email"`
}

func (s *Usecase) ResendRegistrationOTP(ctx context.Context, in RegisterResendInput) (*OTPIssued, error) {
	ctx, span := s.startSpan(ctx, "ResendRegistrationOTP")
	defer span.End()

	in.Email = entity.NormalizeIdentity(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	acc, err := s.accounts.GetAccountByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errNoPendingRegistration
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return nil, transient(err)
	}

	if acc.Status != entity.AccountStatusUnverified {
		slog.WarnContext(ctx, "resend requested for settled account", "account_id", acc.ID, "status", acc.Status.String())
		return nil, errNoPendingRegistration
	}

	return s.issue(ctx, in.Email, entity.PurposeRegistration, acc.FullName)
}

func (s *Usecase) issue(ctx context.Context, email string, purpose entity.Purpose, name string) (*OTPIssued, error) {
	out, err := s.otp.Issue(ctx, IssueInput{Identity: email, Purpose: purpose, Name: name})
	if err != nil {
		return nil, err
	}

	return &OTPIssued{
		OTPExpiryMinutes:  out.OTPExpiryMinutes,
		AttemptsRemaining: out.AttemptsRemaining,
	}, nil
}
