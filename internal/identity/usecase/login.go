package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type LoginRequestInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,max=72"`
}

// RequestLoginOTP checks the password before anything about the account state
// is revealed, then sends a login code.
func (s *Usecase) RequestLoginOTP(ctx context.Context, in LoginRequestInput) (*OTPIssued, error) {
	ctx, span := s.startSpan(ctx, "RequestLoginOTP")
	defer span.End()

	in.Email = entity.NormalizeIdentity(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	acc, err := s.accounts.GetAccountByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errBadCredential
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return nil, transient(err)
	}

	if !s.password.Verify(acc.PasswordHash, in.Password) {
		slog.WarnContext(ctx, "login requested with wrong password", "account_id", acc.ID)
		return nil, errBadCredential
	}

	switch acc.Status {
	case entity.AccountStatusActive:
	case entity.AccountStatusUnverified:
		return nil, errAccountUnverified
	default:
		slog.WarnContext(ctx, "login requested for blocked account", "account_id", acc.ID, "status", acc.Status.String())
		return nil, errAccountBanned
	}

	return s.issue(ctx, in.Email, entity.PurposeLogin, acc.FullName)
}

type LoginVerifyInput struct {
	Email string
	Code  string
}

func (s *Usecase) VerifyLoginOTP(ctx context.Context, in LoginVerifyInput) (*entity.Session, error) {
	ctx, span := s.startSpan(ctx, "VerifyLoginOTP")
	defer span.End()

	in.Email = entity.NormalizeIdentity(in.Email)

	err := s.otp.Verify(ctx, VerifyInput{Identity: in.Email, Purpose: entity.PurposeLogin, Code: in.Code})
	if err != nil {
		return nil, err
	}

	acc, err := s.accounts.GetAccountByEmail(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errBadCredential
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by email", "email", in.Email, "error", err)
		return nil, transient(err)
	}

	switch acc.Status {
	case entity.AccountStatusActive:
	case entity.AccountStatusUnverified:
		return nil, errAccountUnverified
	default:
		return nil, errAccountBanned
	}

	return s.mintSession(ctx, acc)
}
