package usecase

import (
	"context"
	"log/slog"
)

// PurgeExpired is run by the reaper job. Counting never depends on it.
func (s *Usecase) PurgeExpired(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "PurgeExpired")
	defer span.End()

	attempts, records, err := s.otp.Purge(ctx)
	if err != nil {
		return err
	}

	if attempts > 0 || records > 0 {
		slog.InfoContext(ctx, "purged otp state", "attempts", attempts, "records", records)
	}

	return nil
}
