package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blog-edge/middleware/gate/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStore implementa domain.Store sobre go-redis.
//
// Cada chamada roda com um timeout curto próprio (opTimeout). Reconexão e pool
// ficam a cargo do go-redis; quem chama só vê o erro da chamada.
type RedisStore struct {
	rdb       redis.UniversalClient
	opTimeout time.Duration
	prefix    string
}

type RedisOption func(*RedisStore)

// WithOpTimeout define o timeout de cada chamada ao Redis.
func WithOpTimeout(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithKeyPrefix prefixa todas as chaves (ex: "blog:"), útil quando o Redis é compartilhado.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:       rdb,
		opTimeout: 150 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client expõe o cliente para componentes que precisam do Redis cru (ex: stats).
func (s *RedisStore) Client() redis.UniversalClient { return s.rdb }

func (s *RedisStore) Enabled() bool { return true }

func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *RedisStore) k(key string) string { return s.prefix + key }

func notFound(err error) error {
	if errors.Is(err, redis.Nil) {
		return domain.ErrNotFound
	}
	return err
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()
	b, err := s.rdb.Get(ctx, s.k(key)).Bytes()
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.rdb.Set(ctx, s.k(key), value, ttl).Err()
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.rdb.SetNX(ctx, s.k(key), value, 0).Result()
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.k(key)
	}
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.rdb.Del(ctx, full...).Err()
}

func (s *RedisStore) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.rdb.IncrBy(ctx, s.k(key), n).Result()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.rdb.Expire(ctx, s.k(key), ttl).Err()
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()
	d, err := s.rdb.TTL(ctx, s.k(key)).Result()
	if err != nil {
		return 0, err
	}
	// go-redis devolve -2/-1 sem escala quando a chave não existe / não expira.
	switch d {
	case -2:
		return 0, domain.ErrNotFound
	case -1:
		return domain.NoExpiry, nil
	}
	return d, nil
}

func (s *RedisStore) ZIncrBy(ctx context.Context, key, member string, by float64) (float64, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.rdb.ZIncrBy(ctx, s.k(key), by, member).Result()
}

func (s *RedisStore) ZScore(ctx context.Context, key, member string) (float64, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()
	v, err := s.rdb.ZScore(ctx, s.k(key), member).Result()
	if err != nil {
		return 0, notFound(err)
	}
	return v, nil
}

func (s *RedisStore) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.rdb.ZRem(ctx, s.k(key), args...).Err()
}

func (s *RedisStore) ZCard(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.rdb.ZCard(ctx, s.k(key)).Result()
}

// ZTrimLowest lê e remove as posições [0, -(keep+1)] dentro de um MULTI/EXEC:
// os removidos devolvidos são exatamente os que saíram, e concorrentes nunca
// descem o set abaixo de keep.
func (s *RedisStore) ZTrimLowest(ctx context.Context, key string, keep int64) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	ctx, cancel := s.call(ctx)
	defer cancel()

	var victims *redis.StringSliceCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		victims = p.ZRange(ctx, s.k(key), 0, -(keep + 1))
		p.ZRemRangeByRank(ctx, s.k(key), 0, -(keep + 1))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return victims.Val(), nil
}

func (s *RedisStore) ZTop(ctx context.Context, key string, n int64) ([]domain.ScoredMember, error) {
	if n <= 0 {
		return nil, nil
	}
	ctx, cancel := s.call(ctx)
	defer cancel()
	zs, err := s.rdb.ZRevRangeWithScores(ctx, s.k(key), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	return decodeZ(zs)
}

// decodeZ valida a resposta do sorted set na fronteira do adapter.
func decodeZ(zs []redis.Z) ([]domain.ScoredMember, error) {
	out := make([]domain.ScoredMember, 0, len(zs))
	for _, z := range zs {
		m, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected sorted set member type %T", z.Member)
		}
		out = append(out, domain.ScoredMember{Member: m, Score: z.Score})
	}
	return out, nil
}

func (s *RedisStore) HIncrBy(ctx context.Context, key, field string, n int64) (int64, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.rdb.HIncrBy(ctx, s.k(key), field, n).Result()
}

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for f, v := range fields {
		args = append(args, f, v)
	}
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.rdb.HSet(ctx, s.k(key), args...).Err()
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (domain.Hash, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()
	m, err := s.rdb.HGetAll(ctx, s.k(key)).Result()
	if err != nil {
		return nil, err
	}
	return domain.Hash(m), nil
}
