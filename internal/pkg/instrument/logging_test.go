package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	return out
}

func TestHandler_MasksSensitiveFields(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "otpgate", "info", nil, []string{"password", " OTP "}))

	// Act
	logger.Info("login",
		"email", "a@x.io",
		"password", "secret1",
		"body", `{"email":"a@x.io","otp":"123456"}`,
		"payload", map[string]any{"nested": map[string]any{"password": "p"}},
	)

	// Assert
	line := decodeLine(t, &buf)
	if line["password"] != maskedValue {
		t.Errorf("password = %v, want masked", line["password"])
	}
	if line["email"] != "a@x.io" {
		t.Errorf("email = %v, want unmasked", line["email"])
	}
	if line["body"] != `{"email":"a@x.io","otp":"***"}` {
		t.Errorf("body = %v, want otp masked", line["body"])
	}
	nested := line["payload"].(map[string]any)["nested"].(map[string]any)
	if nested["password"] != maskedValue {
		t.Errorf("nested password = %v, want masked", nested["password"])
	}
	if line["service"] != "otpgate" {
		t.Errorf("service = %v, want otpgate", line["service"])
	}
}

func TestHandler_CorrelationID(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "otpgate", "debug", nil, nil))
	ctx := SetCorrelationID(context.Background(), "cid-1")

	// Act
	logger.DebugContext(ctx, "hello")

	// Assert
	if got := decodeLine(t, &buf)["_cID"]; got != "cid-1" {
		t.Fatalf("_cID = %v, want cid-1", got)
	}
}

func TestHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, "otpgate", "warn", nil, nil))

	logger.Info("dropped")

	if buf.Len() != 0 {
		t.Fatalf("info line written at warn level: %s", buf.String())
	}
}

func TestGetCorrelationID_Empty(t *testing.T) {
	if got := GetCorrelationID(context.Background()); got != "" {
		t.Fatalf("GetCorrelationID() = %q, want empty", got)
	}
}
