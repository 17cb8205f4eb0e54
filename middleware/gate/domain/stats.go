package domain

import (
	"context"
	"time"
)

// Verdict é o desfecho do gate para uma requisição.
type Verdict string

const (
	VerdictAllowed     Verdict = "allowed"
	VerdictRateLimited Verdict = "rate_limited"
	VerdictBanned      Verdict = "banned"
	VerdictAutoBanned  Verdict = "auto_banned"
)

// StatsEvent representa uma decisão do gate.
//
// Observação: cuidado com cardinalidade (ex.: salvar IP/Path sem controle pode
// explodir o número de séries/chaves em Redis/Prometheus).
type StatsEvent struct {
	IP      string
	Bucket  Bucket
	Verdict Verdict

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência das estatísticas do gate.
// Quem chama trata erro como best-effort (não derruba request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
