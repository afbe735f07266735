package usecase

import (
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
)

const (
	defaultDailyCap          = 10
	defaultCodeTTL           = 10 * time.Minute
	defaultMaxVerifyAttempts = 5
	defaultWindow            = 24 * time.Hour
	defaultRecordRetention   = time.Hour
)

// OTPPolicy holds the limits of the engine.
type OTPPolicy struct {
	DailyCap          int
	CodeTTL           time.Duration
	MaxVerifyAttempts int
	Window            time.Duration
	// RecordRetention keeps expired records readable so late submissions get Expired.
	RecordRetention time.Duration
}

// LoadOTPPolicy reads modules.identity.otp.* and falls back to defaults for
// missing or non-positive values. It is read per call so config reloads apply.
func LoadOTPPolicy(cfg config.Config) OTPPolicy {
	p := OTPPolicy{
		DailyCap:          defaultDailyCap,
		CodeTTL:           defaultCodeTTL,
		MaxVerifyAttempts: defaultMaxVerifyAttempts,
		Window:            defaultWindow,
		RecordRetention:   defaultRecordRetention,
	}
	if cfg == nil {
		return p
	}

	if v := cfg.GetInt("modules.identity.otp.daily_cap"); v > 0 {
		p.DailyCap = v
	}
	if v := cfg.GetMinute("modules.identity.otp.ttl_minutes"); v > 0 {
		p.CodeTTL = v
	}
	if v := cfg.GetInt("modules.identity.otp.max_verify_attempts"); v > 0 {
		p.MaxVerifyAttempts = v
	}
	if v := cfg.GetHour("modules.identity.otp.window_hours"); v > 0 {
		p.Window = v
	}
	if v := cfg.GetMinute("modules.identity.otp.record_retention_minutes"); v > 0 {
		p.RecordRetention = v
	}

	return p
}

// CodeTTLMinutes is the value echoed to clients as otpExpiryMinutes.
// Partial minutes round up so a short TTL never reads as zero.
func (p OTPPolicy) CodeTTLMinutes() int {
	return max(1, int((p.CodeTTL+time.Minute-1)/time.Minute))
}
