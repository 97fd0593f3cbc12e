package pipeline

import (
	"log/slog"
	"maps"

	"github.com/aretw0/warp/internal/logging"
	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/ports"
)

// DefaultName labels pipelines built without WithName.
const DefaultName = "pipeline"

type settings struct {
	name   string
	params map[string]any
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	tx     txConfig
}

// txConfig is the transaction configuration that travels upstream on composition.
type txConfig struct {
	boundary ports.TransactionBoundary
	provider ports.TransactionProvider
	hook     ports.BoundaryHook
}

func newSettings(opts []Option) settings {
	s := settings{
		name:   DefaultName,
		params: map[string]any{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option defines a functional option for configuring a Pipeline.
type Option func(*settings)

// WithName labels the pipeline in logs, events and metrics.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithParams sets the read-only parameters handed to every step.
// The map is copied.
func WithParams(params map[string]any) Option {
	return func(s *settings) {
		s.params = maps.Clone(params)
		if s.params == nil {
			s.params = map[string]any{}
		}
	}
}

// WithLogger sets the structured logger used by the failure classifier.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = hooks
	}
}

// WithTransactionProvider resolves the transaction boundary lazily, once per execution.
func WithTransactionProvider(provider ports.TransactionProvider) Option {
	return func(s *settings) {
		s.tx.provider = provider
	}
}

// WithTransactionBoundary sets a boundary that is used as is.
// It takes precedence over a provider.
func WithTransactionBoundary(boundary ports.TransactionBoundary) Option {
	return func(s *settings) {
		s.tx.boundary = boundary
	}
}

// WithBoundaryHook decorates the boundary resolved for each execution.
func WithBoundaryHook(hook ports.BoundaryHook) Option {
	return func(s *settings) {
		s.tx.hook = hook
	}
}
