package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
)

const recordColumns = `identity, purpose, code_hash, issued_at, expires_at, verify_attempts_used`

func scanRecord(row pgx.Row) (*entity.OTPRecord, error) {
	var (
		rec     entity.OTPRecord
		purpose int16
	)
	err := row.Scan(&rec.Identity, &purpose, &rec.CodeHash, &rec.IssuedAt, &rec.ExpiresAt, &rec.VerifyAttemptsUsed)
	if err != nil {
		return nil, err
	}
	rec.Purpose = entity.Purpose(purpose)
	return &rec, nil
}

// Put replaces the live record in a single statement.
func (s *DB) Put(ctx context.Context, rec entity.OTPRecord) (err error) {
	ctx, span := s.startSpan(ctx, "Put")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
		INSERT INTO identity_otp_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (identity, purpose) DO UPDATE SET
			code_hash = EXCLUDED.code_hash,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at,
			verify_attempts_used = 0`,
		rec.Identity, int16(rec.Purpose), rec.CodeHash, rec.IssuedAt, rec.ExpiresAt,
	)
	return s.mapError(err)
}

func (s *DB) Get(ctx context.Context, identity string, purpose entity.Purpose) (rec *entity.OTPRecord, err error) {
	ctx, span := s.startSpan(ctx, "Get")
	defer func() { s.endSpan(span, err) }()

	rec, err = scanRecord(s.conn.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM identity_otp_records WHERE identity = $1 AND purpose = $2`,
		identity, int16(purpose),
	))
	return rec, s.mapError(err)
}

func (s *DB) IncrementAttempt(ctx context.Context, identity string, purpose entity.Purpose) (rec *entity.OTPRecord, err error) {
	ctx, span := s.startSpan(ctx, "IncrementAttempt")
	defer func() { s.endSpan(span, err) }()

	rec, err = scanRecord(s.conn.QueryRow(ctx, `
		UPDATE identity_otp_records SET verify_attempts_used = verify_attempts_used + 1
		WHERE identity = $1 AND purpose = $2
		RETURNING `+recordColumns,
		identity, int16(purpose),
	))
	return rec, s.mapError(err)
}

// Consume deletes the record only while it still holds codeHash. Of two
// concurrent callers at most one sees true.
func (s *DB) Consume(ctx context.Context, identity string, purpose entity.Purpose, codeHash string) (ok bool, err error) {
	ctx, span := s.startSpan(ctx, "Consume")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx,
		`DELETE FROM identity_otp_records WHERE identity = $1 AND purpose = $2 AND code_hash = $3`,
		identity, int16(purpose), codeHash,
	)
	if err != nil {
		return false, s.mapError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *DB) Delete(ctx context.Context, identity string, purpose entity.Purpose) (err error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`DELETE FROM identity_otp_records WHERE identity = $1 AND purpose = $2`,
		identity, int16(purpose),
	)
	return s.mapError(err)
}

func (s *DB) PurgeExpired(ctx context.Context, before time.Time) (n int64, err error) {
	ctx, span := s.startSpan(ctx, "PurgeExpired")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM identity_otp_records WHERE expires_at < $1`, before)
	if err != nil {
		return 0, s.mapError(err)
	}
	return tag.RowsAffected(), nil
}
