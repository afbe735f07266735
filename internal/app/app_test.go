package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

const testConfig = `
app:
  name: otpgate
  node_id: 1
  server:
    max_goroutine: 16
    http:
      address: 127.0.0.1:0
hash:
  hmac:
    secret: test-hmac-secret
  password:
    algorithm: bcrypt
    bcrypt_cost: 4
jwt:
  secret: 0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef
  issuer: otpgate
  ttl_minutes: 15
messaging:
  driver: memory
modules:
  identity:
    enabled: true
    otp:
      store: memory
  notification:
    enabled: true
`

type recordingMail struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *recordingMail) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMail) Close() error { return nil }

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{ctx: ctx, cancel: cancel, config: cfg, ins: instrument.NewNoop()}
	a.initLibraries()
	a.initJWT()
	a.mail = &recordingMail{}
	a.initMessaging()
	a.initHTTPServer()
	a.initModules()
	a.initClosers()

	return a
}

func TestApp_ServeAndStop(t *testing.T) {
	// Arrange
	a := newTestApp(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	errc := a.Serve(ln)
	base := "http://" + ln.Addr().String()

	// Act
	health, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer health.Body.Close()

	register, err := http.Post(base+"/api/v1/auth/register/request-otp", "application/json",
		strings.NewReader(`{"email":"ada@example.com","password":"s3cret-pass","name":"Ada Lovelace"}`))
	if err != nil {
		t.Fatalf("POST request-otp: %v", err)
	}
	defer register.Body.Close()

	me, err := http.Get(base + "/api/v1/auth/me")
	if err != nil {
		t.Fatalf("GET /me: %v", err)
	}
	defer me.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Stop(ctx)

	// Assert
	if health.StatusCode != http.StatusOK {
		t.Fatalf("/health status = %d, want 200", health.StatusCode)
	}
	if register.StatusCode != http.StatusOK {
		t.Fatalf("request-otp status = %d, want 200", register.StatusCode)
	}
	if me.StatusCode != http.StatusUnauthorized {
		t.Fatalf("/me status = %d, want 401", me.StatusCode)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		t.Fatalf("Serve() error = %v, want ErrServerClosed", err)
	}
}

func TestHealth_Check(t *testing.T) {
	tests := []struct {
		name     string
		redis    func(t *testing.T) redis.UniversalClient
		wantErr  bool
		wantDeps int
	}{
		{
			name:  "no dependencies configured",
			redis: func(*testing.T) redis.UniversalClient { return nil },
		},
		{
			name: "redis up",
			redis: func(t *testing.T) redis.UniversalClient {
				mr := miniredis.RunT(t)
				c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = c.Close() })
				return c
			},
			wantDeps: 1,
		},
		{
			name: "redis down",
			redis: func(t *testing.T) redis.UniversalClient {
				mr := miniredis.RunT(t)
				c := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
				t.Cleanup(func() { _ = c.Close() })
				mr.Close()
				return c
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := newHealth(nil, tt.redis(t))
			req, _ := http.NewRequest(http.MethodGet, "/health", nil)

			// Act
			got, err := h.Check(&router.Request{Request: req})

			// Assert
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			resp := got.(healthResponse)
			if resp.Status != "ok" || len(resp.Dependencies) != tt.wantDeps {
				t.Fatalf("Check() = %+v", resp)
			}
			if _, err := json.Marshal(resp); err != nil {
				t.Fatalf("marshal: %v", err)
			}
		})
	}
}
