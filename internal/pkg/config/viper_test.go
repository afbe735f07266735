package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

const sampleYAML = `
app:
  name: otpgate
modules:
  identity:
    otp:
      daily_cap: 10
      ttl_minutes: 10
      window_hours: 24
instrument:
  log_mask_fields: "password, code ,, otp"
app_list:
  cors:
    - http://localhost:3000
    - " https://example.com "
labels: "env:dev,team: auth"
`

func TestNewViperFromBytes(t *testing.T) {
	// Arrange
	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("NewViperFromBytes() error = %v", err)
	}

	// Act & Assert
	if got := cfg.GetInt("modules.identity.otp.daily_cap"); got != 10 {
		t.Errorf("GetInt() = %d, want 10", got)
	}
	if got := cfg.GetMinute("modules.identity.otp.ttl_minutes"); got != 10*time.Minute {
		t.Errorf("GetMinute() = %v, want 10m", got)
	}
	if got := cfg.GetHour("modules.identity.otp.window_hours"); got != 24*time.Hour {
		t.Errorf("GetHour() = %v, want 24h", got)
	}
	if !cfg.IsSet("app.name") || cfg.IsSet("app.missing") {
		t.Error("IsSet() reported wrong presence")
	}

	wantMask := []string{"password", "code", "otp"}
	if got := cfg.GetArray("instrument.log_mask_fields"); !reflect.DeepEqual(got, wantMask) {
		t.Errorf("GetArray(csv) = %v, want %v", got, wantMask)
	}

	wantCORS := []string{"http://localhost:3000", "https://example.com"}
	if got := cfg.GetArray("app_list.cors"); !reflect.DeepEqual(got, wantCORS) {
		t.Errorf("GetArray(list) = %v, want %v", got, wantCORS)
	}

	wantLabels := map[string]string{"env": "dev", "team": "auth"}
	if got := cfg.GetMap("labels"); !reflect.DeepEqual(got, wantLabels) {
		t.Errorf("GetMap() = %v, want %v", got, wantLabels)
	}

	if got := cfg.GetArray("missing"); len(got) != 0 {
		t.Errorf("GetArray(missing) = %v, want empty", got)
	}
}

func TestNewViperFromBytes_NoType(t *testing.T) {
	if _, err := NewViperFromBytes(" ", nil); !errors.Is(err, ErrConfigTypeRequired) {
		t.Fatalf("error = %v, want ErrConfigTypeRequired", err)
	}
}

func TestNewViper_EnvOverride(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OTPGATETEST_MODULES_IDENTITY_OTP_DAILY_CAP", "3")

	// Act
	cfg, err := NewViper(file, "OTPGATETEST")
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}

	// Assert
	if got := cfg.GetInt("modules.identity.otp.daily_cap"); got != 3 {
		t.Fatalf("GetInt() = %d, want env override 3", got)
	}
	if got := cfg.GetString("app.name"); got != "otpgate" {
		t.Fatalf("GetString() = %q, want file value", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	if err := os.WriteFile(file, []byte("OTPGATE_DOTENV_PROBE=loaded\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("OTPGATE_DOTENV_PROBE", "")
	os.Unsetenv("OTPGATE_DOTENV_PROBE")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), file); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("OTPGATE_DOTENV_PROBE"); got != "loaded" {
		t.Fatalf("env = %q, want loaded", got)
	}
}
