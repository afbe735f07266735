package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

const healthTimeout = 2 * time.Second

var errDependencyDown = errors.New("a dependency is not reachable")

type pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger struct {
	client redis.UniversalClient
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

type health struct {
	deps map[string]pinger
}

// newHealth checks only the connections that were configured.
func newHealth(db *pgxpool.Pool, cache redis.UniversalClient) *health {
	h := &health{deps: map[string]pinger{}}
	if db != nil {
		h.deps["postgres"] = db
	}
	if cache != nil {
		h.deps["redis"] = redisPinger{client: cache}
	}
	return h
}

type healthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func (healthResponse) Message() string { return "service is healthy" }

func (h *health) Check(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Dependencies: map[string]string{}}
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			slog.ErrorContext(ctx, "health check failed", "dependency", name, "error", err)
			return nil, goerror.NewUnavailable(errDependencyDown)
		}
		resp.Dependencies[name] = "ok"
	}

	return resp, nil
}
