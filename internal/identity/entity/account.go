package entity

import (
	"strings"
	"time"
)

type AccountStatus int16

const (
	AccountStatusUnknown    AccountStatus = 0
	AccountStatusUnverified AccountStatus = 1
	AccountStatusActive     AccountStatus = 2
	AccountStatusBanned     AccountStatus = 3
)

func (s AccountStatus) String() string {
	switch s {
	case AccountStatusUnverified:
		return "unverified"
	case AccountStatusActive:
		return "active"
	case AccountStatusBanned:
		return "banned"
	default:
		return "unknown"
	}
}

// Ensure maps values outside the known set to AccountStatusUnknown.
func (s AccountStatus) Ensure() AccountStatus {
	switch s {
	case AccountStatusUnverified, AccountStatusActive, AccountStatusBanned:
		return s
	default:
		return AccountStatusUnknown
	}
}

type Account struct {
	ID           int64
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	VerifiedAt   *time.Time
}

// Session is the credential handed out after a successful code verification.
type Session struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
