package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/identity/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type uc interface {
	RequestRegistrationOTP(ctx context.Context, in usecase.RegisterRequestInput) (*usecase.OTPIssued, error)
	VerifyRegistrationOTP(ctx context.Context, in usecase.RegisterVerifyInput) (*entity.Session, error)
	ResendRegistrationOTP(ctx context.Context, in usecase.RegisterResendInput) (*usecase.OTPIssued, error)

	RequestLoginOTP(ctx context.Context, in usecase.LoginRequestInput) (*usecase.OTPIssued, error)
	VerifyLoginOTP(ctx context.Context, in usecase.LoginVerifyInput) (*entity.Session, error)

	Profile(ctx context.Context) (*entity.Account, error)
	UpdateProfile(ctx context.Context, in usecase.ProfileUpdateInput) (*entity.Account, error)
}

func RegisterHTTPEndpoint(r *router.Router, cfg config.Config, uc uc) {
	end := &HTTPEndpoint{uc: uc, cfg: cfg}

	r.Public(http.MethodPost,
		"/api/v1/auth/register/request-otp",
		"/api/v1/auth/register/verify-otp",
		"/api/v1/auth/register/resend-otp",
		"/api/v1/auth/login/request-otp",
		"/api/v1/auth/login/verify-otp",
	)

	// Registration
	r.POST("/api/v1/auth/register/request-otp", end.RegisterRequestOTP)
	r.POST("/api/v1/auth/register/verify-otp", end.RegisterVerifyOTP)
	r.POST("/api/v1/auth/register/resend-otp", end.RegisterResendOTP)

	// Login
	r.POST("/api/v1/auth/login/request-otp", end.LoginRequestOTP)
	r.POST("/api/v1/auth/login/verify-otp", end.LoginVerifyOTP)

	// Profile (need authenticated)
	r.GET("/api/v1/auth/me", end.Profile)
	r.PUT("/api/v1/auth/profile", end.ProfileUpdate)
}
