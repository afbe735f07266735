package entity

import "time"

// AttemptRecord is one ledger row: a code was issued for Identity/Purpose at IssuedAt.
// Rows are never updated.
type AttemptRecord struct {
	ID       int64
	Identity string
	Purpose  Purpose
	IssuedAt time.Time
}

// OTPRecord is the single live code of an Identity/Purpose pair.
type OTPRecord struct {
	Identity           string
	Purpose            Purpose
	CodeHash           string
	IssuedAt           time.Time
	ExpiresAt          time.Time
	VerifyAttemptsUsed int
}

// Expired reports whether now is strictly after ExpiresAt.
func (r OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// NormalizeIdentity trims and lowercases an email for use as a storage key.
func NormalizeIdentity(email string) string {
	return normalizeEmail(email)
}
