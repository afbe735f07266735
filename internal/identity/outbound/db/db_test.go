package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var base = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests are skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("otpgate"),
		postgres.WithUsername("otpgate"),
		postgres.WithPassword("otpgate"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	t.Cleanup(pool.Close)

	db := NewDB(pool, instrument.NewNoop())
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestDB(t *testing.T) {
	db := newDB(t)

	t.Run("ledger", func(t *testing.T) {
		// Arrange
		ctx := context.Background()
		since := base.Add(-24 * time.Hour)
		for i, at := range []time.Time{since, base.Add(-2 * time.Hour), base.Add(-time.Hour)} {
			err := db.RecordIssuance(ctx, entity.AttemptRecord{ID: int64(100 + i), Identity: "ledger@b.com", Purpose: entity.PurposeLogin, IssuedAt: at})
			if err != nil {
				t.Fatalf("RecordIssuance() error = %v", err)
			}
		}

		// Act
		count, err := db.CountRecent(ctx, "ledger@b.com", entity.PurposeLogin, since)
		oldest, oerr := db.OldestRecent(ctx, "ledger@b.com", entity.PurposeLogin, since)
		_, missing := db.OldestRecent(ctx, "ledger@b.com", entity.PurposeRegistration, since)
		purged, perr := db.PurgeBefore(ctx, since)

		// Assert
		if err != nil || count != 2 {
			t.Fatalf("CountRecent() = %d, %v; want 2", count, err)
		}
		if oerr != nil || !oldest.Equal(base.Add(-2*time.Hour)) {
			t.Fatalf("OldestRecent() = %v, %v", oldest, oerr)
		}
		if !errors.Is(missing, goerror.ErrNotFound) {
			t.Fatalf("OldestRecent() empty error = %v", missing)
		}
		if perr != nil || purged != 1 {
			t.Fatalf("PurgeBefore() = %d, %v; want 1", purged, perr)
		}
	})

	t.Run("records", func(t *testing.T) {
		// Arrange
		ctx := context.Background()
		rec := entity.OTPRecord{Identity: "rec@b.com", Purpose: entity.PurposeRegistration, CodeHash: "h1", IssuedAt: base, ExpiresAt: base.Add(10 * time.Minute)}

		// Act
		_ = db.Put(ctx, rec)
		bumped, ierr := db.IncrementAttempt(ctx, rec.Identity, rec.Purpose)
		rec.CodeHash = "h2"
		_ = db.Put(ctx, rec)
		got, gerr := db.Get(ctx, rec.Identity, rec.Purpose)

		// Assert
		if ierr != nil || bumped.VerifyAttemptsUsed != 1 {
			t.Fatalf("IncrementAttempt() = %+v, %v", bumped, ierr)
		}
		if gerr != nil || got.CodeHash != "h2" || got.VerifyAttemptsUsed != 0 || got.Purpose != entity.PurposeRegistration {
			t.Fatalf("Get() = %+v, %v", got, gerr)
		}

		_ = db.Delete(ctx, rec.Identity, rec.Purpose)
		if _, err := db.IncrementAttempt(ctx, rec.Identity, rec.Purpose); !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("IncrementAttempt() after Delete error = %v", err)
		}
	})

	t.Run("concurrent increments", func(t *testing.T) {
		// Arrange
		ctx := context.Background()
		_ = db.Put(ctx, entity.OTPRecord{Identity: "race@b.com", Purpose: entity.PurposeLogin, CodeHash: "h", IssuedAt: base, ExpiresAt: base.Add(time.Minute)})
		var wg sync.WaitGroup
		var mu sync.Mutex
		seen := map[int]bool{}

		// Act
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec, err := db.IncrementAttempt(ctx, "race@b.com", entity.PurposeLogin)
				if err == nil {
					mu.Lock()
					seen[rec.VerifyAttemptsUsed] = true
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		// Assert
		if len(seen) != 10 {
			t.Fatalf("distinct attempt counts = %d; want 10", len(seen))
		}
	})

	t.Run("purge expired records", func(t *testing.T) {
		// Arrange
		ctx := context.Background()
		_ = db.Put(ctx, entity.OTPRecord{Identity: "old@b.com", Purpose: entity.PurposeLogin, CodeHash: "h", IssuedAt: base.Add(-3 * time.Hour), ExpiresAt: base.Add(-2 * time.Hour)})

		// Act
		n, err := db.PurgeExpired(ctx, base.Add(-time.Hour))

		// Assert
		if err != nil || n < 1 {
			t.Fatalf("PurgeExpired() = %d, %v", n, err)
		}
		if _, err := db.Get(ctx, "old@b.com", entity.PurposeLogin); !errors.Is(err, goerror.ErrNotFound) {
			t.Fatalf("expired record survived: %v", err)
		}
	})

	t.Run("concurrent reserve fills the cap exactly", func(t *testing.T) {
		// Arrange
		ctx := context.Background()
		since := base.Add(-24 * time.Hour)
		var wg sync.WaitGroup
		var mu sync.Mutex
		won := 0

		// Act
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := entity.AttemptRecord{ID: int64(500 + i), Identity: "cap@b.com", Purpose: entity.PurposeLogin, IssuedAt: base}
				_, ok, err := db.Reserve(ctx, rec, since, 3)
				if err != nil {
					t.Errorf("Reserve() error = %v", err)
					return
				}
				if ok {
					mu.Lock()
					won++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		// Assert
		count, err := db.CountRecent(ctx, "cap@b.com", entity.PurposeLogin, since)
		if won != 3 || err != nil || count != 3 {
			t.Fatalf("reserved = %d, rows = %d, %v; want 3 and 3", won, count, err)
		}
		if err := db.Remove(ctx, entity.AttemptRecord{ID: 500, Identity: "cap@b.com", Purpose: entity.PurposeLogin}); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
	})

	t.Run("consume once", func(t *testing.T) {
		// Arrange
		ctx := context.Background()
		_ = db.Put(ctx, entity.OTPRecord{Identity: "once@b.com", Purpose: entity.PurposeLogin, CodeHash: "h", IssuedAt: base, ExpiresAt: base.Add(time.Minute)})

		// Act
		stale, serr := db.Consume(ctx, "once@b.com", entity.PurposeLogin, "other")
		first, ferr := db.Consume(ctx, "once@b.com", entity.PurposeLogin, "h")
		second, _ := db.Consume(ctx, "once@b.com", entity.PurposeLogin, "h")

		// Assert
		if serr != nil || stale {
			t.Fatalf("Consume() stale hash = %v, %v; want false", stale, serr)
		}
		if ferr != nil || !first || second {
			t.Fatalf("Consume() = %v then %v, %v; want true then false", first, second, ferr)
		}
	})

	t.Run("accounts", func(t *testing.T) {
		// Arrange
		ctx := context.Background()
		acc := entity.Account{ID: 1, Email: "acc@b.com", FullName: "Ann", PasswordHash: "x", Status: entity.AccountStatusUnverified, CreatedAt: base, UpdatedAt: base}

		// Act
		err := db.CreateAccount(ctx, acc)
		dup := db.CreateAccount(ctx, entity.Account{ID: 2, Email: "acc@b.com", PasswordHash: "x", Status: entity.AccountStatusUnverified, CreatedAt: base, UpdatedAt: base})
		acc.FullName = "Ann Lee"
		perr := db.UpdatePendingAccount(ctx, acc)
		aerr := db.ActivateAccount(ctx, 1, base.Add(time.Minute))
		again := db.ActivateAccount(ctx, 1, base.Add(time.Minute))
		uerr := db.UpdateAccountProfile(ctx, 1, "Ann L", "+628123", base.Add(2*time.Minute))
		got, gerr := db.GetAccountByEmail(ctx, "acc@b.com")
		_, missing := db.GetAccountByID(ctx, 404)

		// Assert
		if err != nil || !errors.Is(dup, goerror.ErrConflict) {
			t.Fatalf("CreateAccount() = %v then %v", err, dup)
		}
		if perr != nil || aerr != nil || uerr != nil {
			t.Fatalf("updates = %v, %v, %v", perr, aerr, uerr)
		}
		if !errors.Is(again, goerror.ErrNotFound) {
			t.Fatalf("second ActivateAccount() error = %v", again)
		}
		if gerr != nil || got.Status != entity.AccountStatusActive || got.VerifiedAt == nil || got.FullName != "Ann L" || got.Phone != "+628123" {
			t.Fatalf("GetAccountByEmail() = %+v, %v", got, gerr)
		}
		if !errors.Is(missing, goerror.ErrNotFound) {
			t.Fatalf("GetAccountByID() missing error = %v", missing)
		}
	})
}
