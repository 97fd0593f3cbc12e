package warp

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/warp/internal/config"
	httpAdapter "github.com/aretw0/warp/pkg/adapters/http"
	"github.com/aretw0/warp/pkg/adapters/memory"
	"github.com/aretw0/warp/pkg/adapters/redis"
	"github.com/aretw0/warp/pkg/adapters/sqltx"
	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/observability"
	"github.com/aretw0/warp/pkg/persistence/middleware"
	"github.com/aretw0/warp/pkg/pipeline"
	"github.com/aretw0/warp/pkg/ports"
	"github.com/aretw0/warp/pkg/script"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Version is the release of the module.
//
//go:embed VERSION
var Version string

// Runtime bundles the collaborators wired around pipelines: the run store, the
// optional database and distributed lock, metrics and tracing.
type Runtime struct {
	Config   config.Config
	Logger   *slog.Logger
	Store    ports.RunStore
	DB       *sql.DB
	Locker   ports.DistributedLocker
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Tracer   trace.Tracer

	closers []func() error
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger overrides the logger built from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.Logger = logger
		}
	}
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runtime) {
		if tracer != nil {
			r.Tracer = tracer
		}
	}
}

// WithRunStore overrides the run store selected by the configuration.
func WithRunStore(store ports.RunStore) Option {
	return func(r *Runtime) {
		r.Store = store
	}
}

// New builds a Runtime from cfg.
// A database DSN enables SQL transactions; a Redis address enables the Redis run
// store and the distributed lock. Without either, runs are kept in memory and
// SerializeRuns selects an in-process lock.
func New(cfg config.Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	domain.SetFullTrace(cfg.FullTrace)

	r := &Runtime{
		Config:   cfg,
		Logger:   cfg.Logger(),
		Registry: prometheus.NewRegistry(),
		Tracer:   otel.Tracer("github.com/aretw0/warp"),
	}
	for _, opt := range opts {
		opt(r)
	}

	metrics, err := observability.NewMetrics(r.Registry, "warp")
	if err != nil {
		return nil, err
	}
	r.Metrics = metrics

	if cfg.DatabaseDSN != "" {
		db, err := sqltx.Open(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		r.DB = db
		r.closers = append(r.closers, db.Close)
	}

	if cfg.RedisAddr != "" {
		client := backend.NewClient(&backend.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			_ = r.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		r.closers = append(r.closers, client.Close)
		r.Locker = redis.NewLocker(client, cfg.RedisPrefix)
		if r.Store == nil {
			r.Store = redis.NewFromClient(client,
				redis.WithPrefix(cfg.RedisPrefix+"run:"),
				redis.WithTTL(cfg.RunTTL),
			)
		}
	}

	if r.Locker == nil && cfg.SerializeRuns {
		r.Locker = memory.NewLocker()
	}
	if r.Store == nil {
		r.Store = memory.NewStore()
	}

	mws, err := storeMiddlewares(cfg)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	r.Store = middleware.Chain(r.Store, mws...)
	return r, nil
}

// storeMiddlewares masks first, so encrypted snapshots never hold the masked values.
func storeMiddlewares(cfg config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.MaskKeys) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.MaskKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}

	active, fallback, err := cfg.EncryptionKeys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// PipelineOptions returns the options every pipeline of the runtime is built with.
//
// The boundary is a SQL transaction when a database is configured, or a bare
// distributed lock when only Redis is. With both, the lock is held around the
// transaction. Metrics and a tracing span decorate whatever boundary is resolved.
func (r *Runtime) PipelineOptions(name string, params map[string]any) []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithName(name),
		pipeline.WithParams(params),
		pipeline.WithLogger(r.Logger),
		pipeline.WithLifecycleHooks(domain.MergeHooks(r.Metrics.Hooks(), observability.FailureEvents())),
	}

	hooks := []ports.BoundaryHook{
		r.Metrics.BoundaryHook(name),
		observability.TracingHook(r.Tracer, name),
	}

	switch {
	case r.DB != nil:
		opts = append(opts, pipeline.WithTransactionProvider(sqltx.Provider(r.DB)))
		if r.Locker != nil {
			hooks = append(hooks, redis.LockHook(r.Locker, name, r.Config.LockTTL))
		}
	case r.Locker != nil:
		opts = append(opts, pipeline.WithTransactionProvider(redis.LockProvider(r.Locker, name, r.Config.LockTTL)))
	}

	return append(opts, pipeline.WithBoundaryHook(ports.ChainBoundaryHooks(hooks...)))
}

// ScriptPipeline builds the pipeline that runs s and stores its return value under script.ResultKey.
func (r *Runtime) ScriptPipeline(s *script.Script, params map[string]any) *pipeline.Pipeline[pipeline.Empty, any, *Runtime] {
	p := pipeline.Init(r, r.PipelineOptions(s.Name(), params)...)
	return pipeline.ThenSet(p, script.ResultKey, script.Step[pipeline.Empty, *Runtime](s))
}

// LoadScripts reads every *.lua file of dir.
func LoadScripts(dir string) ([]*script.Script, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	sort.Strings(paths)

	scripts := make([]*script.Script, 0, len(paths))
	var errs []error
	for _, path := range paths {
		s, err := script.LoadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		scripts = append(scripts, s)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return scripts, nil
}

// ScriptRoutes exposes every script of dir as an HTTP route named after the file.
// Script routes render the raw model.
func (r *Runtime) ScriptRoutes(dir string) (map[string]httpAdapter.Route, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("scripts directory: %w", err)
	}
	scripts, err := LoadScripts(dir)
	if err != nil {
		return nil, err
	}

	routes := make(map[string]httpAdapter.Route, len(scripts))
	for _, s := range scripts {
		routes[s.Name()] = httpAdapter.Route{
			Build: func(params map[string]any) (pipeline.Executor, error) {
				return r.ScriptPipeline(s, params), nil
			},
			Params: s.Params(),
		}
	}
	return routes, nil
}

// Handler builds the HTTP handler serving the given routes with the runtime's run store.
func (r *Runtime) Handler(routes map[string]httpAdapter.Route) *httpAdapter.Server {
	return httpAdapter.NewServer(routes,
		httpAdapter.WithRunStore(r.Store),
		httpAdapter.WithLogger(r.Logger),
		httpAdapter.WithVersion(strings.TrimSpace(Version)),
	)
}

// Close releases the database and Redis connections.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
