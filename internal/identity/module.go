package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/identity/inbound"
	"github.com/shandysiswandi/otpgate/internal/identity/outbound/cache"
	"github.com/shandysiswandi/otpgate/internal/identity/outbound/db"
	"github.com/shandysiswandi/otpgate/internal/identity/outbound/memory"
	"github.com/shandysiswandi/otpgate/internal/identity/outbound/mq"
	"github.com/shandysiswandi/otpgate/internal/identity/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

// Values of modules.identity.otp.store.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

var (
	ErrUnknownStore  = errors.New("identity: unknown otp store")
	ErrStoreNotReady = errors.New("identity: otp store connection is missing")
)

type Dependency struct {
	Ctx        context.Context            `validate:"required"`
	DBConn     *pgxpool.Pool              // required for store postgres
	CacheConn  redis.UniversalClient      // required for store redis
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Password   hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
}

type stores struct {
	ledger   usecase.AttemptLedger
	records  usecase.OTPRecordStore
	accounts usecase.AccountStore
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	st, err := newStores(dep)
	if err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		Ledger:     st.ledger,
		Records:    st.records,
		Accounts:   st.accounts,
		Publisher:  mq.NewMessaging(dep.Messaging, dep.Instrument),
		Codes:      usecase.NewRandomCode(),
		Validator:  dep.Validator,
		Config:     dep.Config,
		HMAC:       dep.HMAC,
		Password:   dep.Password,
		UID:        dep.UID,
		UUID:       dep.UUID,
		Clock:      dep.Clock,
		JWT:        dep.JWT,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, dep.Config, uc)
	inbound.RegisterPurgeJob(dep.Ctx, dep.Goroutine, dep.Config, uc)

	return nil
}

// newStores picks the ledger and record backend. Accounts live in Postgres
// whenever a pool is available and only store memory keeps them in process.
func newStores(dep Dependency) (*stores, error) {
	driver := strings.ToLower(strings.TrimSpace(dep.Config.GetString("modules.identity.otp.store")))
	if driver == "" {
		driver = StorePostgres
	}

	var st stores
	mem := memory.New()
	st.accounts = mem

	var pg *db.DB
	if dep.DBConn != nil {
		pg = db.NewDB(dep.DBConn, dep.Instrument)
		if dep.Config.GetBool("database.auto_migrate") {
			if err := pg.Migrate(dep.Ctx); err != nil {
				return nil, fmt.Errorf("identity: migrate: %w", err)
			}
		}
		st.accounts = pg
	}

	switch driver {
	case StorePostgres:
		if pg == nil {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotReady, driver)
		}
		st.ledger, st.records = pg, pg
	case StoreRedis:
		if dep.CacheConn == nil {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotReady, driver)
		}
		// in-process accounts would split per instance next to a shared ledger
		if pg == nil {
			return nil, fmt.Errorf("%w: %s needs database.url for accounts", ErrStoreNotReady, driver)
		}
		policy := usecase.LoadOTPPolicy(dep.Config)
		c := cache.NewCache(dep.CacheConn, dep.Instrument, policy.Window, policy.RecordRetention)
		st.ledger, st.records = c, c
	case StoreMemory:
		st.ledger, st.records = mem, mem
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, driver)
	}

	return &st, nil
}
