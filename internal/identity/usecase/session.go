package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

func (s *Usecase) mintSession(ctx context.Context, acc *entity.Account) (*entity.Session, error) {
	token, err := s.jwt.Generate(acc.ID, acc.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate access token", "account_id", acc.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &entity.Session{
		AccessToken: token,
		TokenType:   jwt.TokenTypeBearer,
		ExpiresIn:   s.jwt.TTL(),
	}, nil
}
