package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

func (s *DB) RecordIssuance(ctx context.Context, rec entity.AttemptRecord) (err error) {
	ctx, span := s.startSpan(ctx, "RecordIssuance")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO identity_otp_attempts (id, identity, purpose, issued_at) VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.Identity, int16(rec.Purpose), rec.IssuedAt,
	)
	return s.mapError(err)
}

// Reserve serializes contenders of one identity and purpose on a transaction
// scoped advisory lock, so the count and the insert see the same ledger.
func (s *DB) Reserve(ctx context.Context, rec entity.AttemptRecord, since time.Time, limit int) (n int, ok bool, err error) {
	ctx, span := s.startSpan(ctx, "Reserve")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, false, err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), $2)`, rec.Identity, int32(rec.Purpose)); err != nil {
		return 0, false, s.mapError(err)
	}

	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM identity_otp_attempts WHERE identity = $1 AND purpose = $2 AND issued_at > $3`,
		rec.Identity, int16(rec.Purpose), since,
	).Scan(&n)
	if err != nil {
		return 0, false, s.mapError(err)
	}
	if n >= limit {
		return n, false, nil
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO identity_otp_attempts (id, identity, purpose, issued_at) VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.Identity, int16(rec.Purpose), rec.IssuedAt,
	)
	if err != nil {
		return 0, false, s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, false, s.mapError(err)
	}
	return n + 1, true, nil
}

func (s *DB) Remove(ctx context.Context, rec entity.AttemptRecord) (err error) {
	ctx, span := s.startSpan(ctx, "Remove")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `DELETE FROM identity_otp_attempts WHERE id = $1`, rec.ID)
	return s.mapError(err)
}

func (s *DB) CountRecent(ctx context.Context, identity string, purpose entity.Purpose, since time.Time) (n int, err error) {
	ctx, span := s.startSpan(ctx, "CountRecent")
	defer func() { s.endSpan(span, err) }()

	err = s.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM identity_otp_attempts WHERE identity = $1 AND purpose = $2 AND issued_at > $3`,
		identity, int16(purpose), since,
	).Scan(&n)
	return n, s.mapError(err)
}

func (s *DB) OldestRecent(ctx context.Context, identity string, purpose entity.Purpose, since time.Time) (at time.Time, err error) {
	ctx, span := s.startSpan(ctx, "OldestRecent")
	defer func() { s.endSpan(span, err) }()

	var oldest *time.Time
	err = s.conn.QueryRow(ctx,
		`SELECT MIN(issued_at) FROM identity_otp_attempts WHERE identity = $1 AND purpose = $2 AND issued_at > $3`,
		identity, int16(purpose), since,
	).Scan(&oldest)
	if err != nil {
		return time.Time{}, s.mapError(err)
	}
	if oldest == nil {
		return time.Time{}, goerror.ErrNotFound
	}
	return *oldest, nil
}

func (s *DB) PurgeBefore(ctx context.Context, before time.Time) (n int64, err error) {
	ctx, span := s.startSpan(ctx, "PurgeBefore")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM identity_otp_attempts WHERE issued_at <= $1`, before)
	if err != nil {
		return 0, s.mapError(err)
	}
	return tag.RowsAffected(), nil
}
