package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"firledger/internal/access"
	accessmetrics "firledger/internal/access/metrics"
	auditmetrics "firledger/internal/audit/metrics"
	auditservice "firledger/internal/audit/service"
	auditmemory "firledger/internal/audit/store/memory"
	auditpostgres "firledger/internal/audit/store/postgres"
	caselinkmodels "firledger/internal/caselink/models"
	caselinkservice "firledger/internal/caselink/service"
	caselinkmemory "firledger/internal/caselink/store/memory"
	caselinkpostgres "firledger/internal/caselink/store/postgres"
	casemetrics "firledger/internal/cases/metrics"
	casemodels "firledger/internal/cases/models"
	caseservice "firledger/internal/cases/service"
	casememory "firledger/internal/cases/store/memory"
	casepostgres "firledger/internal/cases/store/postgres"
	jwttoken "firledger/internal/jwt_token"
	personservice "firledger/internal/person/service"
	personmemory "firledger/internal/person/store/memory"
	personpostgres "firledger/internal/person/store/postgres"
	"firledger/internal/platform/config"
	"firledger/internal/platform/idempotency"
	"firledger/internal/platform/metrics"
	"firledger/internal/platform/postgres"
	redisplatform "firledger/internal/platform/redis"
	reportservice "firledger/internal/report/service"
	statementmetrics "firledger/internal/statement/metrics"
	statementservice "firledger/internal/statement/service"
	statementmemory "firledger/internal/statement/store/memory"
	statementpostgres "firledger/internal/statement/store/postgres"
	id "firledger/pkg/domain"
	txcontext "firledger/pkg/platform/tx"
)

// caseStore is what the services collectively need from the case table.
type caseStore interface {
	caseservice.Store
	StationOf(ctx context.Context, caseID id.CaseID) (id.StationID, error)
	LockStation(ctx context.Context, caseID id.CaseID) (id.StationID, error)
}

type linkStore interface {
	caselinkservice.Store
	LockSubject(ctx context.Context, caseID id.CaseID, linkID id.LinkID) (*caselinkmodels.Subject, error)
	ListSubjects(ctx context.Context, caseID id.CaseID) ([]caselinkmodels.Subject, error)
}

type stores struct {
	cases      caseStore
	persons    personservice.Store
	links      linkStore
	statements statementservice.Store
	audit      auditservice.Store
	runner     txcontext.Runner
}

func memoryStores() stores {
	persons := personmemory.NewInMemoryStore()
	return stores{
		cases:      casememory.NewInMemoryStore(),
		persons:    persons,
		links:      caselinkmemory.NewInMemoryStore(persons),
		statements: statementmemory.NewInMemoryStore(),
		audit:      auditmemory.NewInMemoryStore(),
		runner:     txcontext.NewMemory(),
	}
}

func postgresStores(db *sql.DB, cfg config.Server) stores {
	return stores{
		cases:      casepostgres.New(db),
		persons:    personpostgres.New(db),
		links:      caselinkpostgres.New(db),
		statements: statementpostgres.New(db),
		audit:      auditpostgres.New(db, auditpostgres.WithOutbox(cfg.Kafka.OutboxEnabled)),
		runner:     txcontext.NewPostgres(db, cfg.Database.TxTimeout),
	}
}

// app holds every constructed dependency the serve command needs.
type app struct {
	cfg    config.Server
	logger *slog.Logger
	db     *sql.DB
	redis  *redisplatform.Client

	httpMetrics *metrics.Metrics
	auditMetric *auditmetrics.Metrics
	jwt         *jwttoken.JWTService
	idempotency *idempotency.Middleware

	cases      *caseservice.Service
	persons    *personservice.Service
	links      *caselinkservice.Service
	statements *statementservice.Service
	audit      *auditservice.Service
	reports    *reportservice.Service
}

func buildApp(ctx context.Context, cfg config.Server, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:         cfg,
		logger:      logger,
		httpMetrics: metrics.New(),
		auditMetric: auditmetrics.New(),
		jwt:         jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer),
	}

	st := memoryStores()
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if len(applied) > 0 {
			logger.InfoContext(ctx, "applied migrations", "migrations", applied)
		}
		a.db = db
		st = postgresStores(db, cfg)
	} else {
		logger.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
	}

	var transitions *casemodels.TransitionTable
	if cfg.TransitionsFile != "" {
		t, err := casemodels.LoadTransitionTable(cfg.TransitionsFile)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("load case transitions: %w", err)
		}
		transitions = t
	}

	guard := access.NewGuard(
		access.WithGuardLogger(logger),
		access.WithGuardMetrics(accessmetrics.New()),
	)

	a.audit = auditservice.New(st.audit, st.cases,
		auditservice.WithLogger(logger),
		auditservice.WithMetrics(a.auditMetric),
		auditservice.WithGuard(guard),
	)
	caseOpts := []caseservice.Option{
		caseservice.WithLogger(logger),
		caseservice.WithMetrics(casemetrics.New()),
		caseservice.WithGuard(guard),
	}
	if transitions != nil {
		caseOpts = append(caseOpts, caseservice.WithTransitions(transitions))
	}
	a.cases = caseservice.New(st.cases, a.audit, st.runner, caseOpts...)
	a.persons = personservice.New(st.persons,
		personservice.WithLogger(logger),
		personservice.WithGuard(guard),
	)
	a.statements = statementservice.New(st.statements, st.links, st.cases, a.audit, st.runner,
		statementservice.WithLogger(logger),
		statementservice.WithMetrics(statementmetrics.New()),
		statementservice.WithGuard(guard),
	)
	a.links = caselinkservice.New(st.links, st.cases, st.persons, a.statements, a.audit, st.runner,
		caselinkservice.WithLogger(logger),
		caselinkservice.WithGuard(guard),
	)
	a.reports = reportservice.New(st.cases, a.links, a.statements, a.audit,
		reportservice.WithLogger(logger),
		reportservice.WithGuard(guard),
	)

	if err := a.buildIdempotency(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// buildIdempotency prefers Redis and falls back to process memory while
// Redis is unreachable.
func (a *app) buildIdempotency(ctx context.Context) error {
	opts := []idempotency.Option{
		idempotency.WithTTL(a.cfg.Redis.IdempotencyTTL),
		idempotency.WithLogger(a.logger),
	}
	client, err := redisplatform.New(ctx, a.cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		a.idempotency = idempotency.New(idempotency.NewInMemoryStore(), opts...)
		return nil
	}
	a.redis = client
	opts = append(opts, idempotency.WithFallback(idempotency.NewInMemoryStore()))
	a.idempotency = idempotency.New(idempotency.NewRedisStore(client.Client), opts...)
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
