package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

var errUnauthenticated = goerror.NewBusiness("Unauthenticated", goerror.CodeUnauthorized)

func (s *Usecase) Profile(ctx context.Context) (*entity.Account, error) {
	ctx, span := s.startSpan(ctx, "Profile")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, errUnauthenticated
	}

	acc, err := s.accounts.GetAccountByID(ctx, clm.AccountID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("Account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by id", "account_id", clm.AccountID, "error", err)
		return nil, transient(err)
	}

	return acc, nil
}

type ProfileUpdateInput struct {
	FullName string `validate:"required,min=2,max=100"`
	Phone    string `validate:"omitempty,e164"`
}

func (s *Usecase) UpdateProfile(ctx context.Context, in ProfileUpdateInput) (*entity.Account, error) {
	ctx, span := s.startSpan(ctx, "UpdateProfile")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, errUnauthenticated
	}

	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	now := s.clock.Now()
	err := s.accounts.UpdateAccountProfile(ctx, clm.AccountID, in.FullName, in.Phone, now)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("Account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo update account profile", "account_id", clm.AccountID, "error", err)
		return nil, transient(err)
	}

	return s.Profile(ctx)
}
