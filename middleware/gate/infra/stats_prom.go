package infra

import (
	"context"
	"errors"

	"blog-edge/middleware/gate/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PromStats exporta as decisões do gate como contadores Prometheus.
type PromStats struct {
	decisions *prometheus.CounterVec
}

// NewPromStats registra os contadores em reg (use prometheus.NewRegistry() em testes).
func NewPromStats(reg prometheus.Registerer) (*PromStats, error) {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "edge_gate",
		Name:      "decisions_total",
		Help:      "Gate decisions by verdict and rate-limit bucket.",
	}, []string{"verdict", "bucket"})

	if err := reg.Register(decisions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		decisions = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return &PromStats{decisions: decisions}, nil
}

func (p *PromStats) Record(_ context.Context, ev domain.StatsEvent) error {
	p.decisions.WithLabelValues(string(ev.Verdict), string(ev.Bucket)).Inc()
	return nil
}

// MultiStats repassa cada evento para todos os stores; devolve o primeiro erro.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
