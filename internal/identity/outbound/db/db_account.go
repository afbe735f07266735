package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

const accountColumns = `id, email, full_name, phone, password_hash, status, created_at, updated_at, verified_at`

func scanAccount(row pgx.Row) (*entity.Account, error) {
	var (
		acc    entity.Account
		status int16
	)
	err := row.Scan(&acc.ID, &acc.Email, &acc.FullName, &acc.Phone, &acc.PasswordHash,
		&status, &acc.CreatedAt, &acc.UpdatedAt, &acc.VerifiedAt)
	if err != nil {
		return nil, err
	}
	acc.Status = entity.AccountStatus(status).Ensure()
	return &acc, nil
}

func (s *DB) GetAccountByEmail(ctx context.Context, email string) (acc *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountByEmail")
	defer func() { s.endSpan(span, err) }()

	acc, err = scanAccount(s.conn.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM identity_accounts WHERE email = $1`, email))
	return acc, s.mapError(err)
}

func (s *DB) GetAccountByID(ctx context.Context, id int64) (acc *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountByID")
	defer func() { s.endSpan(span, err) }()

	acc, err = scanAccount(s.conn.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM identity_accounts WHERE id = $1`, id))
	return acc, s.mapError(err)
}

func (s *DB) CreateAccount(ctx context.Context, acc entity.Account) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAccount")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO identity_accounts (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		acc.ID, acc.Email, acc.FullName, acc.Phone, acc.PasswordHash,
		int16(acc.Status), acc.CreatedAt, acc.UpdatedAt, acc.VerifiedAt,
	)
	return s.mapError(err)
}

func (s *DB) UpdatePendingAccount(ctx context.Context, acc entity.Account) (err error) {
	ctx, span := s.startSpan(ctx, "UpdatePendingAccount")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE identity_accounts SET full_name = $2, phone = $3, password_hash = $4, updated_at = $5
		WHERE id = $1 AND status = $6`,
		acc.ID, acc.FullName, acc.Phone, acc.PasswordHash, acc.UpdatedAt, int16(entity.AccountStatusUnverified),
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}
	return nil
}

func (s *DB) ActivateAccount(ctx context.Context, id int64, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "ActivateAccount")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		UPDATE identity_accounts SET status = $2, verified_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4`,
		id, int16(entity.AccountStatusActive), at, int16(entity.AccountStatusUnverified),
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}
	return nil
}

func (s *DB) UpdateAccountProfile(ctx context.Context, id int64, fullName, phone string, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateAccountProfile")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`UPDATE identity_accounts SET full_name = $2, phone = $3, updated_at = $4 WHERE id = $1`,
		id, fullName, phone, at,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}
	return nil
}
