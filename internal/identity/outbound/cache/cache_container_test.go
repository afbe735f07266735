package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newContainerCache(t *testing.T) *Cache {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container tests are skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}

	uri, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	opt, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	return NewCache(client, instrument.NewNoop(), 24*time.Hour, time.Hour)
}

func TestCache_RealRedis_IncrementIsAtomic(t *testing.T) {
	// Arrange
	c := newContainerCache(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := entity.OTPRecord{
		Identity:  "race@b.com",
		Purpose:   entity.PurposeLogin,
		CodeHash:  "h",
		IssuedAt:  now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
	if err := c.Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Act
	const workers = 20
	var wg sync.WaitGroup
	seen := make(chan int, workers)
	for range workers {
		wg.Go(func() {
			got, err := c.IncrementAttempt(ctx, rec.Identity, rec.Purpose)
			if err != nil {
				t.Errorf("IncrementAttempt() error = %v", err)
				return
			}
			seen <- got.VerifyAttemptsUsed
		})
	}
	wg.Wait()
	close(seen)

	// Assert
	unique := map[int]bool{}
	for n := range seen {
		unique[n] = true
	}
	if len(unique) != workers {
		t.Fatalf("distinct attempt counts = %d, want %d", len(unique), workers)
	}
	stored, err := c.Get(ctx, rec.Identity, rec.Purpose)
	if err != nil || stored.VerifyAttemptsUsed != workers {
		t.Fatalf("Get() = %+v, %v; want %d attempts", stored, err, workers)
	}
	if _, err := c.IncrementAttempt(ctx, "nobody@b.com", rec.Purpose); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("IncrementAttempt() missing error = %v, want ErrNotFound", err)
	}
}
