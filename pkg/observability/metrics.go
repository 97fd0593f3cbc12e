package observability

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/warp/pkg/domain"
	"github.com/aretw0/warp/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of pipeline executions.
type Metrics struct {
	executions   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inFlight     *prometheus.GaugeVec
	failures     *prometheus.CounterVec
	transactions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_executions_total",
				Help:      "Finished pipeline executions by outcome.",
			},
			[]string{"pipeline", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_execution_duration_seconds",
				Help:      "Duration of pipeline executions.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pipeline"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pipeline_executions_in_flight",
				Help:      "Pipeline executions currently running.",
			},
			[]string{"pipeline"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_failures_total",
				Help:      "Classified pipeline failures.",
			},
			[]string{"pipeline", "class", "absorbed"},
		),
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_transactions_total",
				Help:      "Transaction boundaries by result.",
			},
			[]string{"pipeline", "result"},
		),
	}

	for _, c := range []prometheus.Collector{m.executions, m.duration, m.inFlight, m.failures, m.transactions} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnExecuteStart: func(_ context.Context, e *domain.ExecutionEvent) {
			m.inFlight.WithLabelValues(e.Pipeline).Inc()
		},
		OnExecuteEnd: func(_ context.Context, e *domain.ExecutionEvent) {
			m.inFlight.WithLabelValues(e.Pipeline).Dec()
			outcome := "success"
			if e.Outcome != domain.ClassNone {
				outcome = e.Outcome.String()
			}
			m.executions.WithLabelValues(e.Pipeline, outcome).Inc()
			m.duration.WithLabelValues(e.Pipeline).Observe(e.Duration.Seconds())
		},
		OnFailure: func(_ context.Context, e *domain.FailureEvent) {
			m.failures.WithLabelValues(e.Pipeline, e.Class.String(), strconv.FormatBool(e.Absorbed)).Inc()
		},
	}
}

// BoundaryHook counts commits and rollbacks of the boundary it decorates.
func (m *Metrics) BoundaryHook(pipeline string) ports.BoundaryHook {
	return func(inner ports.TransactionBoundary) ports.TransactionBoundary {
		return ports.TransactionFunc(func(ctx context.Context, fn func(context.Context) error) error {
			err := inner.Do(ctx, fn)
			result := "commit"
			if err != nil {
				result = "rollback"
			}
			m.transactions.WithLabelValues(pipeline, result).Inc()
			return err
		})
	}
}
