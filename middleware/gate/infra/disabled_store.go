package infra

import (
	"context"
	"time"

	"blog-edge/middleware/gate/domain"
)

// DisabledStore é o adapter permanente de modo desabilitado.
//
// Toda operação devolve domain.ErrStoreDisabled; os serviços convertem isso
// no valor padrão seguro de cada operação.
type DisabledStore struct{}

var _ domain.Store = DisabledStore{}

func (DisabledStore) Enabled() bool { return false }
func (DisabledStore) Close() error  { return nil }

func (DisabledStore) Get(context.Context, string) ([]byte, error) {
	return nil, domain.ErrStoreDisabled
}

func (DisabledStore) Set(context.Context, string, []byte, time.Duration) error {
	return domain.ErrStoreDisabled
}

func (DisabledStore) SetNX(context.Context, string, []byte) (bool, error) {
	return false, domain.ErrStoreDisabled
}

func (DisabledStore) Del(context.Context, ...string) error { return domain.ErrStoreDisabled }

func (DisabledStore) IncrBy(context.Context, string, int64) (int64, error) {
	return 0, domain.ErrStoreDisabled
}

func (DisabledStore) Expire(context.Context, string, time.Duration) error {
	return domain.ErrStoreDisabled
}

func (DisabledStore) TTL(context.Context, string) (time.Duration, error) {
	return 0, domain.ErrStoreDisabled
}

func (DisabledStore) ZIncrBy(context.Context, string, string, float64) (float64, error) {
	return 0, domain.ErrStoreDisabled
}

func (DisabledStore) ZScore(context.Context, string, string) (float64, error) {
	return 0, domain.ErrStoreDisabled
}

func (DisabledStore) ZRem(context.Context, string, ...string) error { return domain.ErrStoreDisabled }

func (DisabledStore) ZCard(context.Context, string) (int64, error) {
	return 0, domain.ErrStoreDisabled
}

func (DisabledStore) ZTrimLowest(context.Context, string, int64) ([]string, error) {
	return nil, domain.ErrStoreDisabled
}

func (DisabledStore) ZTop(context.Context, string, int64) ([]domain.ScoredMember, error) {
	return nil, domain.ErrStoreDisabled
}

func (DisabledStore) HIncrBy(context.Context, string, string, int64) (int64, error) {
	return 0, domain.ErrStoreDisabled
}

func (DisabledStore) HSet(context.Context, string, map[string]string) error {
	return domain.ErrStoreDisabled
}

func (DisabledStore) HGetAll(context.Context, string) (domain.Hash, error) {
	return nil, domain.ErrStoreDisabled
}
