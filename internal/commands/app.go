package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/telhawk-systems/schoolhub/common/logging"
	natsclient "github.com/telhawk-systems/schoolhub/common/messaging/nats"
	"github.com/telhawk-systems/schoolhub/internal/audit"
	"github.com/telhawk-systems/schoolhub/internal/capability"
	"github.com/telhawk-systems/schoolhub/internal/config"
	"github.com/telhawk-systems/schoolhub/internal/dispatch"
	"github.com/telhawk-systems/schoolhub/internal/events"
	"github.com/telhawk-systems/schoolhub/internal/handlers"
	"github.com/telhawk-systems/schoolhub/internal/password"
	"github.com/telhawk-systems/schoolhub/internal/ratelimit"
	"github.com/telhawk-systems/schoolhub/internal/registry"
	"github.com/telhawk-systems/schoolhub/internal/repository"
	"github.com/telhawk-systems/schoolhub/internal/server"
	"github.com/telhawk-systems/schoolhub/internal/tokens"
	"github.com/telhawk-systems/schoolhub/migrations"
)

var errNATSDisconnected = errors.New("nats disconnected")

// app holds the collaborators built from one configuration.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	repo    repository.Repository
	limiter ratelimit.Limiter
	tokens  *tokens.Service
	bus     *events.Bus
	nats    *natsclient.Client
	checks  map[string]server.HealthCheck
	closers []func()
}

// newApp connects every backend the configuration names. Call close when done.
func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, checks: map[string]server.HealthCheck{}}
	if err := a.open(ctx, a.openRepository, a.openLimiter, a.openBus, a.openTokens); err != nil {
		return nil, err
	}
	return a, nil
}

// newStoreApp opens only the repository and token service, for operator
// commands that do not serve traffic.
func newStoreApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, checks: map[string]server.HealthCheck{}}
	if err := a.open(ctx, a.openRepository, a.openTokens); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context, steps ...func(context.Context) error) error {
	for _, step := range steps {
		if err := step(ctx); err != nil {
			a.close()
			return err
		}
	}
	return nil
}

func (a *app) openRepository(ctx context.Context) error {
	if a.cfg.Database.Type != "postgres" {
		a.logger.Warn("Using in-memory repository (development only)")
		a.repo = repository.NewInMemoryRepository()
		return nil
	}

	pg := a.cfg.Database.Postgres
	url := pg.URL()
	if a.cfg.Database.Migrate {
		version, dirty, err := migrations.Up(url)
		if err != nil {
			return err
		}
		a.logger.Info("Database migration complete",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}

	a.logger.Info("Connecting to PostgreSQL",
		slog.String("host", pg.Host),
		slog.Int("port", pg.Port),
		slog.String("database", pg.Database),
	)
	repo, err := repository.NewPostgresRepository(ctx, url, repository.PoolConfig{
		MaxConns:        pg.MaxConns,
		MinConns:        pg.MinConns,
		MaxConnLifetime: pg.MaxConnLifetime,
		MaxConnIdleTime: pg.MaxConnIdleTime,
	})
	if err != nil {
		return err
	}
	a.repo = repo
	a.checks["database"] = repo.Ping
	a.closers = append(a.closers, repo.Close)
	return nil
}

func (a *app) openLimiter(ctx context.Context) error {
	rl := a.cfg.RateLimit
	if !rl.Enabled {
		a.limiter = ratelimit.NoOpLimiter{}
		return nil
	}

	rc := ratelimit.Config{Limit: rl.Limit, Window: rl.Window, Prefix: rl.Prefix}
	var (
		limiter ratelimit.Limiter
		err     error
	)
	switch rl.Backend {
	case "redis":
		limiter, err = ratelimit.DialRedisLimiter(ctx, a.cfg.Redis.URL, rc)
	default:
		limiter, err = ratelimit.NewMemoryLimiter(rc)
	}
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	a.limiter = limiter
	a.closers = append(a.closers, func() { _ = limiter.Close() })
	a.logger.Info("Rate limiting enabled",
		slog.String("backend", rl.Backend),
		slog.Int("limit", rl.Limit),
		slog.Duration("window", rl.Window),
	)
	return nil
}

func (a *app) openBus(context.Context) error {
	if !a.cfg.NATS.Enabled {
		a.bus = events.NewBus(nil, a.cfg.Service.Name, a.logger.Logger)
		return nil
	}

	nc := natsclient.DefaultConfig()
	nc.URL = a.cfg.NATS.URL
	nc.Name = a.cfg.Service.Name
	nc.MaxReconnects = a.cfg.NATS.MaxReconnects
	if a.cfg.NATS.ReconnectWait > 0 {
		nc.ReconnectWait = a.cfg.NATS.ReconnectWait
	}
	client, err := natsclient.NewClient(nc)
	if err != nil {
		return err
	}
	a.nats = client
	a.bus = events.NewBus(client, a.cfg.Service.Name, a.logger.Logger)
	a.checks["nats"] = func(context.Context) error {
		if !client.IsConnected() {
			return errNATSDisconnected
		}
		return nil
	}
	a.closers = append(a.closers, func() { _ = client.Drain() })
	a.logger.Info("Publishing events to NATS", slog.String("url", nc.URL))
	return nil
}

func (a *app) openTokens(context.Context) error {
	svc, err := newTokenService(a.cfg)
	if err != nil {
		return err
	}
	a.tokens = svc
	return nil
}

func newTokenService(cfg *config.Config) (*tokens.Service, error) {
	return tokens.NewService(tokens.Config{
		LongSecret:  cfg.Tokens.LongSecret,
		ShortSecret: cfg.Tokens.ShortSecret,
		LongTTL:     cfg.Tokens.LongTTL,
		ShortTTL:    cfg.Tokens.ShortTTL,
		Issuer:      cfg.Tokens.Issuer,
	})
}

func (a *app) hasher() *password.Hasher {
	return password.NewHasher(a.cfg.Password.BcryptCost)
}

// handler assembles registry, dispatcher and router.
func (a *app) handler() (http.Handler, error) {
	deps := handlers.Deps{
		Repo:   a.repo,
		Hasher: a.hasher(),
		Tokens: a.tokens,
		Events: a.bus,
		Audit:  audit.NewLogger(a.cfg.AuditSecret(), a.bus, a.logger.Logger),
		Logger: a.logger.Logger,
	}

	reg, err := registry.Build([]capability.Middleware{
		dispatch.Authenticate(a.tokens, a.logger.Logger),
		dispatch.Fingerprint(a.logger.Logger),
	}, handlers.Modules(deps)...)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	a.logger.Info("Capability registry built",
		slog.Int("entries", reg.Len()),
		slog.Any("modules", reg.Modules()),
	)

	api := dispatch.New(dispatch.Deps{
		Registry:     reg,
		Logger:       a.logger,
		TrustProxy:   a.cfg.Server.TrustProxy,
		MaxBodyBytes: a.cfg.Server.MaxBodyBytes,
	})

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	return server.NewRouter(server.Options{
		API:         api,
		Limiter:     a.limiter,
		Logger:      a.logger,
		TrustProxy:  a.cfg.Server.TrustProxy,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		StaticDir:   a.cfg.Server.StaticDir,
		MetricsPath: metricsPath,
		Checks:      a.checks,
	}), nil
}

// close releases backends in reverse order of opening.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
