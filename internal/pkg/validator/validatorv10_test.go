package validator

import (
	"errors"
	"testing"
)

type otpInput struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required,otpcode"`
}

type passwordInput struct {
	Password string `validate:"required,password"`
}

func TestV10Validator_OTPCode(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "six digits", code: "012345", wantErr: false},
		{name: "five digits", code: "12345", wantErr: true},
		{name: "seven digits", code: "1234567", wantErr: true},
		{name: "letters", code: "12a456", wantErr: true},
		{name: "unicode digits", code: "١٢٣٤٥٦", wantErr: true},
		{name: "empty", code: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(otpInput{Email: "a@b.com", Code: tt.code})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var verr V10ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected V10ValidationError, got %T", err)
				}
				if _, ok := verr.Values()["code"]; !ok {
					t.Fatalf("expected error on field code, got %v", verr)
				}
			}
		})
	}
}

func TestV10Validator_Password(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	if err := v.Validate(passwordInput{Password: "12345"}); err == nil {
		t.Fatal("expected error for 5 character password")
	}
	if err := v.Validate(passwordInput{Password: "123456"}); err != nil {
		t.Fatalf("unexpected error for 6 character password: %v", err)
	}
}

func TestToLowerSnake(t *testing.T) {
	tests := map[string]string{
		"Email":      "email",
		"FullName":   "full_name",
		"UserID":     "user_id",
		"HTTPServer": "http_server",
		"Code2FA":    "code2_fa",
	}

	for in, want := range tests {
		if got := toLowerSnake(in); got != want {
			t.Errorf("toLowerSnake(%q) = %q, want %q", in, got, want)
		}
	}
}
