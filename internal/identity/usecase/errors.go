package usecase

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

// Detail field names attached to business errors.
const (
	FieldAttemptsRemaining = "attempts_remaining"
	FieldRetryAfterSeconds = "retry_after_seconds"
)

func errQuotaExceeded(retryAfterSeconds int) error {
	if retryAfterSeconds <= 0 {
		return goerror.NewBusinessCause(entity.ErrQuotaExceeded, "Too many codes requested, please try again later", goerror.CodeTooManyRequest)
	}
	return goerror.NewBusinessCause(entity.ErrQuotaExceeded, "Too many codes requested, please try again later", goerror.CodeTooManyRequest,
		FieldRetryAfterSeconds, strconv.Itoa(retryAfterSeconds))
}

func errInvalidCode(remaining int) error {
	return goerror.NewBusinessCause(entity.ErrInvalidCode, "Invalid code", goerror.CodeUnauthorized,
		FieldAttemptsRemaining, strconv.Itoa(remaining))
}

var (
	errCodeExpired = goerror.NewBusinessCause(entity.ErrCodeExpired,
		"Code has expired, please request a new one", goerror.CodeGone)
	errAttemptsExhausted = goerror.NewBusinessCause(entity.ErrAttemptsExhausted,
		"Too many wrong attempts, please request a new code", goerror.CodeTooManyRequest)
	errNoActiveCode = goerror.NewBusinessCause(entity.ErrNoActiveCode,
		"No active code, please request a new one", goerror.CodeNotFound)

	errAlreadyRegistered = goerror.NewBusinessCause(entity.ErrAlreadyRegistered,
		"Email already registered", goerror.CodeConflict)
	errNoPendingRegistration = goerror.NewBusinessCause(entity.ErrNoPendingRegistration,
		"No pending registration for this email", goerror.CodeNotFound)
	errAccountUnverified = goerror.NewBusinessCause(entity.ErrAccountUnverified,
		"Account not verified", goerror.CodeForbidden)
	errAccountBanned = goerror.NewBusinessCause(entity.ErrAccountBanned,
		"Account not allowed", goerror.CodeForbidden)
	errBadCredential = goerror.NewBusinessCause(entity.ErrBadCredential,
		"Invalid email or password", goerror.CodeUnauthorized)
)

// transient wraps a storage failure. Unreachable stores map to 503.
func transient(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return goerror.NewUnavailable(err)
	}
	return goerror.NewServer(err)
}
