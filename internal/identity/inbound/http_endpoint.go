package inbound

import (
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/identity/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

// Generic answers used when account state must not be disclosed.
var (
	errRegistrationUnavailable = goerror.NewBusiness("Unable to register this email", goerror.CodeForbidden)
	errLoginRejected           = goerror.NewBusiness("Invalid email or password", goerror.CodeUnauthorized)
)

// HTTPEndpoint exposes the registration, login and profile handlers.
type HTTPEndpoint struct {
	uc  uc
	cfg config.Config
}

// conceal replaces account-state errors with fallback unless
// modules.identity.disclose_account_state is on.
func (h *HTTPEndpoint) conceal(r *router.Request, err error, fallback error) error {
	if h.cfg != nil && h.cfg.GetBool("modules.identity.disclose_account_state") {
		return err
	}

	for _, reason := range entity.AccountStateReasons {
		if errors.Is(err, reason) {
			slog.InfoContext(r.Context(), "concealed account state", "reason", reason.Error(), "client_ip", r.ClientIP())
			return fallback
		}
	}
	return err
}

func (h *HTTPEndpoint) RegisterRequestOTP(r *router.Request) (any, error) {
	var req RegisterRequestOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestRegistrationOTP(r.Context(), usecase.RegisterRequestInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		return nil, h.conceal(r, err, errRegistrationUnavailable)
	}

	return newOTPSentResponse(resp), nil
}

func (h *HTTPEndpoint) RegisterVerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyRegistrationOTP(r.Context(), usecase.RegisterVerifyInput{
		Email: req.Email,
		Code:  req.OTP,
	})
	if err != nil {
		return nil, h.conceal(r, err, errRegistrationUnavailable)
	}

	return newSessionResponse(resp), nil
}

func (h *HTTPEndpoint) RegisterResendOTP(r *router.Request) (any, error) {
	var req ResendOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.ResendRegistrationOTP(r.Context(), usecase.RegisterResendInput{
		Email: req.Email,
	})
	if err != nil {
		return nil, h.conceal(r, err, errRegistrationUnavailable)
	}

	return newOTPSentResponse(resp), nil
}

func (h *HTTPEndpoint) LoginRequestOTP(r *router.Request) (any, error) {
	var req LoginRequestOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestLoginOTP(r.Context(), usecase.LoginRequestInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, h.conceal(r, err, errLoginRejected)
	}

	return newOTPSentResponse(resp), nil
}

func (h *HTTPEndpoint) LoginVerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyLoginOTP(r.Context(), usecase.LoginVerifyInput{
		Email: req.Email,
		Code:  req.OTP,
	})
	if err != nil {
		return nil, h.conceal(r, err, errLoginRejected)
	}

	return newSessionResponse(resp), nil
}

func (h *HTTPEndpoint) Profile(r *router.Request) (any, error) {
	resp, err := h.uc.Profile(r.Context())
	if err != nil {
		return nil, err
	}

	return newProfileResponse(resp), nil
}

func (h *HTTPEndpoint) ProfileUpdate(r *router.Request) (any, error) {
	var req ProfileUpdateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.UpdateProfile(r.Context(), usecase.ProfileUpdateInput{
		FullName: req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		return nil, err
	}

	return newProfileResponse(resp), nil
}
