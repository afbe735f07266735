package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

func TestUsecase_RegistrationEndToEnd(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, nil)

	// Act
	issued, err := f.uc.RequestRegistrationOTP(ctx, RegisterRequestInput{
		Email: " A@B.com", Password: "secret-pass", FullName: "Ann Lee", Phone: "+628123456789",
	})
	if err != nil {
		t.Fatalf("RequestRegistrationOTP() error = %v", err)
	}
	session, err := f.uc.VerifyRegistrationOTP(ctx, RegisterVerifyInput{Email: "a@b.com", Code: "123456"})

	// Assert
	if err != nil {
		t.Fatalf("VerifyRegistrationOTP() error = %v", err)
	}
	if issued.AttemptsRemaining != 9 || issued.OTPExpiryMinutes != 10 {
		t.Fatalf("issued = %+v", issued)
	}
	if session.AccessToken == "" || session.TokenType != jwt.TokenTypeBearer || session.ExpiresIn != 15*time.Minute {
		t.Fatalf("session = %+v", session)
	}

	n, _ := f.store.CountRecent(ctx, "a@b.com", entity.PurposeRegistration, testNow.Add(-24*time.Hour))
	if n != 1 {
		t.Fatalf("ledger count = %d; want 1", n)
	}
	if _, err := f.store.Get(ctx, "a@b.com", entity.PurposeRegistration); !errors.Is(err, goerror.ErrNotFound) {
		t.Fatalf("live record left after verify")
	}
	acc, _ := f.store.GetAccountByEmail(ctx, "a@b.com")
	if acc.Status != entity.AccountStatusActive || acc.VerifiedAt == nil || acc.Phone != "+628123456789" {
		t.Fatalf("account = %+v", acc)
	}
}

func TestUsecase_RequestRegistrationOTP(t *testing.T) {
	valid := RegisterRequestInput{Email: "a@b.com", Password: "secret-pass", FullName: "Ann Lee"}

	tests := []struct {
		name     string
		seed     entity.AccountStatus
		in       RegisterRequestInput
		wantErr  error
		wantCode goerror.Code
	}{
		{name: "new account", in: valid},
		{name: "pending account refreshed", seed: entity.AccountStatusUnverified, in: valid},
		{name: "active account", seed: entity.AccountStatusActive, in: valid, wantErr: entity.ErrAlreadyRegistered, wantCode: goerror.CodeConflict},
		{name: "banned account", seed: entity.AccountStatusBanned, in: valid, wantErr: entity.ErrAccountBanned, wantCode: goerror.CodeForbidden},
		{name: "bad email", in: RegisterRequestInput{Email: "nope", Password: "secret-pass", FullName: "Ann"}, wantCode: goerror.CodeInvalidInput},
		{name: "short password", in: RegisterRequestInput{Email: "a@b.com", Password: "123", FullName: "Ann"}, wantCode: goerror.CodeInvalidInput},
		{name: "bad phone", in: RegisterRequestInput{Email: "a@b.com", Password: "secret-pass", FullName: "Ann", Phone: "0812"}, wantCode: goerror.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t, nil)
			if tt.seed != entity.AccountStatusUnknown {
				f.seedAccount(t, 7, "a@b.com", "old-password", tt.seed)
			}

			// Act
			out, err := f.uc.RequestRegistrationOTP(context.Background(), tt.in)

			// Assert
			if tt.wantCode == 0 && tt.wantErr == nil {
				if err != nil || out.AttemptsRemaining != 9 {
					t.Fatalf("RequestRegistrationOTP() = %+v, %v", out, err)
				}
				acc, _ := f.store.GetAccountByEmail(context.Background(), "a@b.com")
				if acc.Status != entity.AccountStatusUnverified || !f.password.Verify(acc.PasswordHash, "secret-pass") {
					t.Fatalf("account = %+v", acc)
				}
				return
			}
			var gerr *goerror.Error
			if !errors.As(err, &gerr) || gerr.Code() != tt.wantCode {
				t.Fatalf("error = %v; want code %s", err, tt.wantCode)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v; want %v", err, tt.wantErr)
			}
			if len(f.publisher.events) != 0 {
				t.Fatalf("code issued on rejected request")
			}
		})
	}
}

func TestUsecase_ResendRegistrationOTP(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, nil, "111111", "222222")
	f.seedAccount(t, 1, "pending@b.com", "secret-pass", entity.AccountStatusUnverified)
	f.seedAccount(t, 2, "active@b.com", "secret-pass", entity.AccountStatusActive)

	// Act
	first, _ := f.uc.ResendRegistrationOTP(ctx, RegisterResendInput{Email: "pending@b.com"})
	second, err := f.uc.ResendRegistrationOTP(ctx, RegisterResendInput{Email: "pending@b.com"})
	_, missing := f.uc.ResendRegistrationOTP(ctx, RegisterResendInput{Email: "ghost@b.com"})
	_, settled := f.uc.ResendRegistrationOTP(ctx, RegisterResendInput{Email: "active@b.com"})

	// Assert
	if err != nil || first.AttemptsRemaining != 9 || second.AttemptsRemaining != 8 {
		t.Fatalf("resend = %+v then %+v, %v", first, second, err)
	}
	assertReason(t, missing, entity.ErrNoPendingRegistration, goerror.CodeNotFound)
	assertReason(t, settled, entity.ErrNoPendingRegistration, goerror.CodeNotFound)
	if err := f.verify("pending@b.com", entity.PurposeRegistration, "222222"); err != nil {
		t.Fatalf("latest resent code rejected: %v", err)
	}
}

func TestUsecase_VerifyRegistrationOTP_BadCodeKeepsAccountPending(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, nil)
	_, _ = f.uc.RequestRegistrationOTP(ctx, RegisterRequestInput{Email: "a@b.com", Password: "secret-pass", FullName: "Ann"})

	// Act
	_, err := f.uc.VerifyRegistrationOTP(ctx, RegisterVerifyInput{Email: "a@b.com", Code: "999999"})

	// Assert
	assertReason(t, err, entity.ErrInvalidCode, goerror.CodeUnauthorized)
	acc, _ := f.store.GetAccountByEmail(ctx, "a@b.com")
	if acc.Status != entity.AccountStatusUnverified {
		t.Fatalf("status = %s; want unverified", acc.Status)
	}
}

func TestUsecase_RequestRegistrationOTP_QuotaLeavesAccountUntouched(t *testing.T) {
	tests := []struct {
		name string
		seed bool
	}{
		{name: "pending account", seed: true},
		{name: "no account yet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ctx := context.Background()
			f := newFixture(t, nil)
			if tt.seed {
				f.seedAccount(t, 7, "a@b.com", "old-password", entity.AccountStatusUnverified)
			}
			for i := range 10 {
				_ = f.store.RecordIssuance(ctx, entity.AttemptRecord{
					ID: int64(100 + i), Identity: "a@b.com", Purpose: entity.PurposeRegistration, IssuedAt: testNow.Add(-time.Hour),
				})
			}

			// Act
			_, err := f.uc.RequestRegistrationOTP(ctx, RegisterRequestInput{
				Email: "a@b.com", Password: "new-secret-pass", FullName: "Someone Else", Phone: "+628123456789",
			})

			// Assert
			assertReason(t, err, entity.ErrQuotaExceeded, goerror.CodeTooManyRequest)
			acc, err := f.store.GetAccountByEmail(ctx, "a@b.com")
			if !tt.seed {
				if !errors.Is(err, goerror.ErrNotFound) {
					t.Fatalf("account created despite quota: %+v, %v", acc, err)
				}
				return
			}
			if acc.FullName != "Test User" || acc.Phone != "" || !f.password.Verify(acc.PasswordHash, "old-password") {
				t.Fatalf("pending account changed despite quota: %+v", acc)
			}
		})
	}
}

func TestUsecase_RequestLoginOTP(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
		wantCode goerror.Code
	}{
		{name: "active", email: "active@b.com", password: "secret-pass"},
		{name: "unknown account", email: "ghost@b.com", password: "secret-pass", wantErr: entity.ErrBadCredential, wantCode: goerror.CodeUnauthorized},
		{name: "wrong password", email: "active@b.com", password: "nope-nope", wantErr: entity.ErrBadCredential, wantCode: goerror.CodeUnauthorized},
		{name: "unverified with wrong password", email: "pending@b.com", password: "nope-nope", wantErr: entity.ErrBadCredential, wantCode: goerror.CodeUnauthorized},
		{name: "unverified", email: "pending@b.com", password: "secret-pass", wantErr: entity.ErrAccountUnverified, wantCode: goerror.CodeForbidden},
		{name: "banned", email: "banned@b.com", password: "secret-pass", wantErr: entity.ErrAccountBanned, wantCode: goerror.CodeForbidden},
		{name: "empty password", email: "active@b.com", wantCode: goerror.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t, nil)
			f.seedAccount(t, 1, "active@b.com", "secret-pass", entity.AccountStatusActive)
			f.seedAccount(t, 2, "pending@b.com", "secret-pass", entity.AccountStatusUnverified)
			f.seedAccount(t, 3, "banned@b.com", "secret-pass", entity.AccountStatusBanned)

			// Act
			out, err := f.uc.RequestLoginOTP(context.Background(), LoginRequestInput{Email: tt.email, Password: tt.password})

			// Assert
			if tt.wantCode == 0 {
				if err != nil || out.AttemptsRemaining != 9 {
					t.Fatalf("RequestLoginOTP() = %+v, %v", out, err)
				}
				return
			}
			var gerr *goerror.Error
			if !errors.As(err, &gerr) || gerr.Code() != tt.wantCode {
				t.Fatalf("error = %v; want code %s", err, tt.wantCode)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v; want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUsecase_LoginEndToEnd(t *testing.T) {
	// Arrange
	ctx := context.Background()
	f := newFixture(t, nil)
	f.seedAccount(t, 42, "a@b.com", "secret-pass", entity.AccountStatusActive)
	if _, err := f.uc.RequestLoginOTP(ctx, LoginRequestInput{Email: "a@b.com", Password: "secret-pass"}); err != nil {
		t.Fatalf("RequestLoginOTP() error = %v", err)
	}

	// Act
	session, err := f.uc.VerifyLoginOTP(ctx, LoginVerifyInput{Email: "A@b.com", Code: "123456"})

	// Assert
	if err != nil {
		t.Fatalf("VerifyLoginOTP() error = %v", err)
	}
	claims, err := f.uc.jwt.Verify(session.AccessToken)
	if err != nil || claims.AccountID != 42 || claims.Email != "a@b.com" {
		t.Fatalf("claims = %+v, %v", claims, err)
	}

	// login and registration codes never cross
	_, err = f.uc.VerifyRegistrationOTP(ctx, RegisterVerifyInput{Email: "a@b.com", Code: "123456"})
	assertReason(t, err, entity.ErrNoActiveCode, goerror.CodeNotFound)
}

func TestUsecase_Profile(t *testing.T) {
	// Arrange
	f := newFixture(t, nil)
	f.seedAccount(t, 42, "a@b.com", "secret-pass", entity.AccountStatusActive)
	ctx := jwt.SetAuth(context.Background(), jwt.Claims{AccountID: 42, Email: "a@b.com"})

	// Act
	acc, err := f.uc.Profile(ctx)
	updated, uerr := f.uc.UpdateProfile(ctx, ProfileUpdateInput{FullName: " Ann Lee ", Phone: "+14155550100"})
	_, invalid := f.uc.UpdateProfile(ctx, ProfileUpdateInput{FullName: "A"})
	_, anon := f.uc.Profile(context.Background())

	// Assert
	if err != nil || acc.Email != "a@b.com" {
		t.Fatalf("Profile() = %+v, %v", acc, err)
	}
	if uerr != nil || updated.FullName != "Ann Lee" || updated.Phone != "+14155550100" {
		t.Fatalf("UpdateProfile() = %+v, %v", updated, uerr)
	}
	var gerr *goerror.Error
	if !errors.As(invalid, &gerr) || gerr.Code() != goerror.CodeInvalidInput {
		t.Fatalf("UpdateProfile() invalid error = %v", invalid)
	}
	if !errors.As(anon, &gerr) || gerr.Code() != goerror.CodeUnauthorized {
		t.Fatalf("Profile() anonymous error = %v", anon)
	}
}
