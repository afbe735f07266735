package config

import (
	"io"
	"time"
)

// TimeConfig reads integer values and scales them into durations.
// Missing or non-numeric keys yield zero.
type TimeConfig interface {
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration
	// GetDay scales by 24h.
	GetDay(key string) time.Duration
}

// SignedIntConfig reads signed integers. Missing keys yield zero.
type SignedIntConfig interface {
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
}

// UnsignedIntConfig reads unsigned integers. Missing keys yield zero.
type UnsignedIntConfig interface {
	GetUint(key string) uint
	GetUint16(key string) uint16
	GetUint32(key string) uint32
	GetUint64(key string) uint64
}

// FloatConfig reads floating-point values. Missing keys yield zero.
type FloatConfig interface {
	GetFloat32(key string) float32
	GetFloat64(key string) float64
}

// Config defines a set of methods for retrieving configuration values of various types.
// Keys are dot separated paths (e.g. "modules.identity.otp.daily_cap").
type Config interface {
	io.Closer
	TimeConfig
	SignedIntConfig
	UnsignedIntConfig
	FloatConfig

	// IsSet reports whether key has a value from any source.
	IsSet(key string) bool

	GetBool(key string) bool
	GetString(key string) string

	// GetBinary decodes a base64 encoded value. Invalid input yields nil.
	GetBinary(key string) []byte

	// GetArray reads either a YAML list or a "<a>,<b>,..." string.
	// Elements are trimmed and empty ones dropped.
	GetArray(key string) []string

	// GetMap reads a "<k1>:<v1>,<k2>:<v2>" string.
	GetMap(key string) map[string]string
}
