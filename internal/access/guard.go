package access

import (
	"context"
	"log/slog"

	"firledger/internal/access/metrics"
	id "firledger/pkg/domain"
	"firledger/pkg/requestcontext"
)

// Guard wraps Authorize with denial logging and counting. The zero value is usable.
type Guard struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type GuardOption func(*Guard)

func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) { g.logger = logger }
}

func WithGuardMetrics(m *metrics.Metrics) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Require returns a forbidden error when actor may not perform capability on
// a resource of resourceStation.
func (g *Guard) Require(ctx context.Context, actor Actor, resourceStation id.StationID, capability Capability) error {
	return g.record(ctx, actor, capability, Authorize(actor, resourceStation, capability))
}

// RequireCapability checks only the role table.
func (g *Guard) RequireCapability(ctx context.Context, actor Actor, capability Capability) error {
	return g.record(ctx, actor, capability, Can(actor, capability))
}

func (g *Guard) record(ctx context.Context, actor Actor, capability Capability, d Decision) error {
	if d.Allowed {
		return nil
	}
	if g != nil && g.metrics != nil {
		g.metrics.IncrementDenied(string(capability), d.Reason)
	}
	if g != nil && g.logger != nil {
		g.logger.WarnContext(ctx, "authorization denied",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", actor.UserID,
			"role", actor.Role,
			"capability", capability,
			"reason", d.Reason,
		)
	}
	return d.Err()
}
