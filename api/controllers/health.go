package controllers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/rentalz-backend/api/responses"
	"github.com/angelmondragon/rentalz-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rentalz-backend/pkg/errors"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names one dependency probed by /health/ready.
type ReadinessCheck struct {
	Name   string
	Pinger pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rentalz-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency in parallel and reports 503 when any fails.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rentalz-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		results := make([]string, len(checks))
		g, gctx := errgroup.WithContext(ctx)
		for i, check := range checks {
			if check.Pinger == nil {
				results[i] = "skipped"
				continue
			}
			g.Go(func() error {
				if err := check.Pinger.Ping(gctx); err != nil {
					results[i] = "down"
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.Name+" unavailable")
				}
				results[i] = "up"
				return nil
			})
		}
		err := g.Wait()

		deps := make(map[string]string, len(checks))
		for i, check := range checks {
			status := results[i]
			if status == "" {
				status = "unknown"
			}
			deps[check.Name] = status
		}
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "readiness check failed", err)
			}
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "dependencies": deps})
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": deps})
	}
}
