package inbound

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
)

const defaultPurgeInterval = 15 * time.Minute

type purger interface {
	PurgeExpired(ctx context.Context) error
}

// RegisterPurgeJob starts the ledger reaper on gm. It stops with ctx.
func RegisterPurgeJob(ctx context.Context, gm *goroutine.Manager, cfg config.Config, uc purger) bool {
	interval := cfg.GetMinute("modules.identity.otp.purge_interval_minutes")
	if interval <= 0 {
		interval = defaultPurgeInterval
	}

	return gm.Every(ctx, "identity.otp-purge", interval, uc.PurgeExpired)
}
