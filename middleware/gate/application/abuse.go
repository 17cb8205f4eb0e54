package application

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"blog-edge/middleware/gate/domain"

	"github.com/rs/zerolog"
)

const (
	DefaultMaxTracked   int64 = 5000
	DefaultDetailTTL          = 30 * 24 * time.Hour
	DefaultBlockPenalty int64 = 5

	scoreUnit = 1
)

// AbuseConfig parametriza o AbuseTracker. Zeros assumem os padrões.
type AbuseConfig struct {
	// MaxTracked é o teto de endereços no ranking; os de menor score saem primeiro.
	MaxTracked int64
	// DetailTTL é a retenção do detalhe por endereço, renovada a cada evento.
	DetailTTL time.Duration
	// BlockPenalty é somado ao contador de PenaltyLimit a cada evento bloqueante.
	BlockPenalty int64
	// PenaltyLimit é o bucket punido (padrão domain.LimitGlobal).
	PenaltyLimit domain.Limit
	// PenaltyCeiling satura o contador punido (padrão 2x PenaltyLimit.Max).
	PenaltyCeiling int64
}

func (c AbuseConfig) withDefaults() AbuseConfig {
	if c.MaxTracked <= 0 {
		c.MaxTracked = DefaultMaxTracked
	}
	if c.DetailTTL <= 0 {
		c.DetailTTL = DefaultDetailTTL
	}
	if c.BlockPenalty <= 0 {
		c.BlockPenalty = DefaultBlockPenalty
	}
	if c.PenaltyLimit.Bucket == "" {
		c.PenaltyLimit = domain.LimitGlobal
	}
	if c.PenaltyCeiling <= 0 {
		c.PenaltyCeiling = 2 * c.PenaltyLimit.Max
	}
	return c
}

// AbuseTracker acumula um score de suspeita por endereço (sorted set global)
// e o detalhe de eventos por endereço (hash com TTL).
type AbuseTracker struct {
	store domain.Store
	cfg   AbuseConfig
	fail  *failures
	now   func() time.Time
}

func NewAbuseTracker(store domain.Store, cfg AbuseConfig, log zerolog.Logger) *AbuseTracker {
	return &AbuseTracker{
		store: store,
		cfg:   cfg.withDefaults(),
		fail:  newFailures(log, "abuse"),
		now:   time.Now,
	}
}

func (t *AbuseTracker) Config() AbuseConfig { return t.cfg }

// RecordSuspicious soma uma unidade ao score de ip e atualiza o detalhe.
//
// Eventos bloqueantes (kind.Blocking) também somam BlockPenalty ao contador
// global de rate limit do endereço: reincidentes esgotam a própria cota mais
// rápido. Nunca devolve erro; falhas de cada passo são engolidas.
func (t *AbuseTracker) RecordSuspicious(ctx context.Context, ip string, bucket domain.Bucket, kind domain.Kind) {
	ip, err := domain.NormalizeIP(ip)
	if err != nil {
		return
	}

	if _, err := t.store.ZIncrBy(ctx, abuseScoreKey, ip, scoreUnit); err != nil {
		t.fail.report("abuse.score", err)
		if errors.Is(err, domain.ErrStoreDisabled) {
			return
		}
	}

	dk := detailKey(ip)
	t.fail.report("abuse.detail", t.store.HSet(ctx, dk, map[string]string{
		fieldLastSeen: strconv.FormatInt(t.now().UnixMilli(), 10),
	}))
	if bucket != "" {
		_, err := t.store.HIncrBy(ctx, dk, fieldBucketPrefix+string(bucket), 1)
		t.fail.report("abuse.detail", err)
	}
	if kind != "" {
		_, err := t.store.HIncrBy(ctx, dk, fieldKindPrefix+string(kind), 1)
		t.fail.report("abuse.detail", err)
	}
	t.fail.report("abuse.detail", t.store.Expire(ctx, dk, t.cfg.DetailTTL))

	t.evict(ctx)

	if kind.Blocking() {
		t.penalize(ctx, ip)
	}
}

// evict remove os menores scores até o ranking voltar exatamente ao teto.
// O corte é atômico e idempotente: eventos concorrentes não esvaziam o ranking.
func (t *AbuseTracker) evict(ctx context.Context) {
	n, err := t.store.ZCard(ctx, abuseScoreKey)
	if err != nil {
		t.fail.report("abuse.card", err)
		return
	}
	if n <= t.cfg.MaxTracked {
		return
	}
	evicted, err := t.store.ZTrimLowest(ctx, abuseScoreKey, t.cfg.MaxTracked)
	if err != nil {
		t.fail.report("abuse.evict", err)
		return
	}
	if len(evicted) == 0 {
		return
	}
	keys := make([]string, 0, len(evicted))
	for _, ip := range evicted {
		keys = append(keys, detailKey(ip))
	}
	t.fail.report("abuse.evict", t.store.Del(ctx, keys...))
}

// penalize soma BlockPenalty ao contador punido. Passando do teto, desfaz só
// o excedente da própria contribuição: nunca baixa o que outros somaram.
func (t *AbuseTracker) penalize(ctx context.Context, ip string) {
	lim := t.cfg.PenaltyLimit
	k := counterKey(lim.Bucket, ip)
	p := t.cfg.BlockPenalty

	n, err := t.store.IncrBy(ctx, k, p)
	if err != nil {
		t.fail.report("abuse.penalty", err)
		return
	}
	if n == p {
		// a penalidade criou o contador: arma a janela como o limiter faria
		t.fail.report("abuse.penalty", t.store.Expire(ctx, k, lim.Window))
	}
	if over := n - t.cfg.PenaltyCeiling; over > 0 {
		_, err := t.store.IncrBy(ctx, k, -min(over, p))
		t.fail.report("abuse.penalty", err)
	}
}

// ListSuspicious devolve até limit endereços por score decrescente.
// Com o store indisponível devolve lista vazia.
func (t *AbuseTracker) ListSuspicious(ctx context.Context, limit int) []domain.Suspect {
	out := []domain.Suspect{}
	if limit <= 0 {
		return out
	}
	top, err := t.store.ZTop(ctx, abuseScoreKey, int64(limit))
	if err != nil {
		t.fail.report("abuse.top", err)
		return out
	}

	for _, m := range top {
		s := domain.Suspect{IP: m.Member, Score: m.Score, Counters: map[string]int64{}}
		h, err := t.store.HGetAll(ctx, detailKey(m.Member))
		if err != nil {
			t.fail.report("abuse.detail", err)
		}
		decodeDetail(h, &s)
		out = append(out, s)
	}
	return out
}

// decodeDetail valida o hash de detalhe; campos malformados são ignorados.
func decodeDetail(h domain.Hash, s *domain.Suspect) {
	for field, raw := range h {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		switch {
		case field == fieldLastSeen:
			s.LastSeen = time.UnixMilli(v).UTC()
		case strings.HasPrefix(field, fieldBucketPrefix), strings.HasPrefix(field, fieldKindPrefix):
			if v != 0 {
				s.Counters[field] = v
			}
		}
	}
}
