package domain

import (
	"context"
	"time"
)

// NoExpiry é o valor de TTL reportado para uma chave existente sem expiração armada.
const NoExpiry time.Duration = -1

// ScoredMember é o resultado tipado de operações em sorted set.
type ScoredMember struct {
	Member string
	Score  float64
}

// Hash é o resultado tipado de HGETALL (campo -> valor bruto).
type Hash map[string]string

// Store é o adapter fino para o store externo de chaves/contadores/sorted sets.
//
// Regras:
//   - Ausência de chave/membro é ErrNotFound.
//   - O adapter desabilitado devolve ErrStoreDisabled em tudo.
//   - Implementações devem limitar cada chamada com um timeout curto;
//     quem chama nunca faz retry síncrono.
//
// Todo componente acima depende apenas desta interface.
type Store interface {
	// Enabled é informativo: quem chama invoca as operações do mesmo jeito.
	Enabled() bool

	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	Del(ctx context.Context, keys ...string) error

	IncrBy(ctx context.Context, key string, n int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL devolve ErrNotFound se a chave não existe e NoExpiry se não há expiração.
	TTL(ctx context.Context, key string) (time.Duration, error)

	ZIncrBy(ctx context.Context, key, member string, by float64) (float64, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	ZRem(ctx context.Context, key string, members ...string) error
	ZCard(ctx context.Context, key string) (int64, error)
	// ZTrimLowest remove, numa única operação atômica, os membros de menor score
	// além dos keep maiores e devolve os removidos. Chamadas repetidas são idempotentes.
	ZTrimLowest(ctx context.Context, key string, keep int64) ([]string, error)
	// ZTop devolve os n membros de maior score, em ordem decrescente.
	ZTop(ctx context.Context, key string, n int64) ([]ScoredMember, error)

	HIncrBy(ctx context.Context, key, field string, n int64) (int64, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (Hash, error)

	Close() error
}
