package application

import (
	"context"
	"time"

	"blog-edge/middleware/gate/domain"

	"github.com/rs/zerolog"
)

// RateLimiter implementa rate limit de janela fixa por (bucket, key).
//
// Janela fixa, não deslizante: um cliente pode passar até ~2x o limite num
// intervalo que cruza a borda de duas janelas. Aceito para mitigação de abuso.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas devolve um RateResult.
type RateLimiter struct {
	store domain.Store
	fail  *failures
}

func NewRateLimiter(store domain.Store, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{store: store, fail: newFailures(log, "ratelimit")}
}

// Check é RateLimit com um limite nomeado.
func (l *RateLimiter) Check(ctx context.Context, lim domain.Limit, key string) domain.RateResult {
	return l.RateLimit(ctx, lim.Bucket, key, lim.Max, lim.Window)
}

// RateLimit incrementa o contador de (bucket, key). A expiração da janela é
// armada só na transição ausente -> 1.
//
// Se o store falhar devolve Allowed=true e Remaining=limit (fail-open): o
// limiter nunca pode ser a causa de uma indisponibilidade.
func (l *RateLimiter) RateLimit(ctx context.Context, bucket domain.Bucket, key string, limit int64, window time.Duration) domain.RateResult {
	open := domain.RateResult{Allowed: true, Limit: limit, Remaining: limit, Reset: window}

	k := counterKey(bucket, key)
	count, err := l.store.IncrBy(ctx, k, 1)
	if err != nil {
		l.fail.report("ratelimit.incr", err)
		return open
	}

	reset := window
	if count == 1 {
		l.fail.report("ratelimit.expire", l.store.Expire(ctx, k, window))
	} else {
		ttl, err := l.store.TTL(ctx, k)
		switch {
		case err != nil:
			l.fail.report("ratelimit.ttl", err)
		case ttl == domain.NoExpiry:
			// incr e expire não são atômicos juntos; rearma aqui em vez de travar
			l.fail.report("ratelimit.rearm", l.store.Expire(ctx, k, window))
		case ttl > 0:
			reset = ttl
		}
	}

	return domain.RateResult{
		Allowed:   count <= limit,
		Count:     count,
		Limit:     limit,
		Remaining: max(0, limit-count),
		Reset:     reset,
	}
}
