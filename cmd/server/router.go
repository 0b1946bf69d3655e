package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "firledger/internal/audit/handler"
	caselinkhandler "firledger/internal/caselink/handler"
	casehandler "firledger/internal/cases/handler"
	personhandler "firledger/internal/person/handler"
	authmw "firledger/internal/platform/middleware"
	reporthandler "firledger/internal/report/handler"
	statementhandler "firledger/internal/statement/handler"
	"firledger/pkg/platform/httputil"
	"firledger/pkg/platform/middleware/metadata"
	"firledger/pkg/platform/middleware/request"
	"firledger/pkg/platform/middleware/requesttime"
)

// newRouter mounts the probes unauthenticated and every domain route
// behind bearer authentication and idempotency replay.
func (a *app) newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(a.httpMetrics.Middleware)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireActor(a.jwt, a.logger))
		r.Use(a.idempotency.Handler)

		casehandler.New(a.cases, a.logger).Register(r)
		personhandler.New(a.persons, a.logger).Register(r)
		caselinkhandler.New(a.links, a.logger).Register(r)
		statementhandler.New(a.statements, a.logger).Register(r)
		audithandler.New(a.audit, a.logger).Register(r)
		reporthandler.New(a.reports, a.logger).Register(r)
	})
	return r
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "memory", "redis": "disabled"}
	healthy := true
	if a.db != nil {
		checks["database"] = "ok"
		if err := a.db.PingContext(ctx); err != nil {
			a.logger.ErrorContext(ctx, "health check: database ping failed", "error", err)
			checks["database"] = "unavailable"
			healthy = false
		}
	}
	if a.redis != nil {
		checks["redis"] = "ok"
		if err := a.redis.Health(ctx); err != nil {
			// Idempotency degrades to memory; the service stays up.
			a.logger.WarnContext(ctx, "health check: redis ping failed", "error", err)
			checks["redis"] = "unavailable"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, checks)
}
