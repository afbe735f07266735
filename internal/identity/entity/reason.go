package entity

import "errors"

// Reasons are wrapped by the business errors of the identity usecases so the
// HTTP layer can pick a disclosure level with errors.Is.
var (
	ErrQuotaExceeded     = errors.New("identity: otp quota exceeded")
	ErrInvalidCode       = errors.New("identity: otp code does not match")
	ErrCodeExpired       = errors.New("identity: otp code expired")
	ErrAttemptsExhausted = errors.New("identity: otp verify attempts exhausted")
	ErrNoActiveCode      = errors.New("identity: no active otp code")

	ErrAlreadyRegistered     = errors.New("identity: account already registered")
	ErrNoPendingRegistration = errors.New("identity: no pending registration")
	ErrAccountUnverified     = errors.New("identity: account unverified")
	ErrAccountBanned         = errors.New("identity: account banned")
	ErrBadCredential         = errors.New("identity: invalid email or password")
)

// AccountStateReasons reveal whether an email is known to the system.
var AccountStateReasons = []error{
	ErrAlreadyRegistered,
	ErrNoPendingRegistration,
	ErrAccountUnverified,
	ErrAccountBanned,
}
