package inbound

import (
	"strconv"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/identity/usecase"
)

type RegisterRequestOTPRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResendOTPRequest struct {
	Email string `json:"email"`
}

type LoginRequestOTPRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileUpdateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type OTPSentResponse struct {
	OTPExpiryMinutes  int `json:"otp_expiry_minutes"`
	AttemptsRemaining int `json:"attempts_remaining"`
}

func (OTPSentResponse) Message() string {
	return "Verification code sent. Please check your email."
}

func newOTPSentResponse(out *usecase.OTPIssued) OTPSentResponse {
	return OTPSentResponse{
		OTPExpiryMinutes:  out.OTPExpiryMinutes,
		AttemptsRemaining: out.AttemptsRemaining,
	}
}

type SessionResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	// ExpiresIn is in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

func (SessionResponse) Message() string {
	return "Verification successful"
}

func newSessionResponse(s *entity.Session) SessionResponse {
	return SessionResponse{
		AccessToken: s.AccessToken,
		TokenType:   s.TokenType,
		ExpiresIn:   int64(s.ExpiresIn / time.Second),
	}
}

type ProfileResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone,omitempty"`
	Status     string     `json:"status"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func newProfileResponse(acc *entity.Account) ProfileResponse {
	return ProfileResponse{
		ID:         strconv.FormatInt(acc.ID, 10),
		Email:      acc.Email,
		Name:       acc.FullName,
		Phone:      acc.Phone,
		Status:     acc.Status.String(),
		VerifiedAt: acc.VerifiedAt,
		CreatedAt:  acc.CreatedAt,
	}
}
