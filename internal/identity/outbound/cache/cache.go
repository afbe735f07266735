// Package cache stores the attempt ledger and live codes in Redis.
//
// Ledger keys are sorted sets scored by issuance time in milliseconds, record
// keys are hashes. Both carry a TTL so Redis reaps them without the purge job.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultLedgerTTL = 24 * time.Hour

type Cache struct {
	client    redis.UniversalClient
	ins       instrument.Instrumentation
	ledgerTTL time.Duration
	retention time.Duration
}

// NewCache builds the Redis store. ledgerTTL should match the quota window and
// retention is how long a record stays readable after it expires.
func NewCache(client redis.UniversalClient, ins instrument.Instrumentation, ledgerTTL, retention time.Duration) *Cache {
	if ledgerTTL <= 0 {
		ledgerTTL = defaultLedgerTTL
	}
	return &Cache{
		client:    client,
		ins:       ins,
		ledgerTTL: ledgerTTL,
		retention: max(retention, 0),
	}
}

func ledgerKey(identity string, purpose entity.Purpose) string {
	return fmt.Sprintf("otp:ledger:%s:%s", purpose, identity)
}

func recordKey(identity string, purpose entity.Purpose) string {
	return fmt.Sprintf("otp:record:%s:%s", purpose, identity)
}

func (c *Cache) mapError(err error) error {
	if errors.Is(err, redis.Nil) {
		return goerror.ErrNotFound
	}
	return err
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("identity.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
