package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"blog-edge/middleware/gate/domain"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

// json ordena as chaves de map, o que torna a serialização do fingerprint canônica.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultCacheTTL é usado quando Wrap recebe ttl <= 0.
const DefaultCacheTTL = time.Minute

// Cache memoiza valores por namespace + fingerprint.
//
// Invalidação é só por "epoch bump": Bump incrementa a versão do namespace e
// todas as chaves antigas ficam órfãs (expiram pelo TTL, nunca são apagadas).
type Cache struct {
	store domain.Store
	fail  *failures
}

func NewCache(store domain.Store, log zerolog.Logger) *Cache {
	return &Cache{store: store, fail: newFailures(log, "cache")}
}

// ErrEpochUnknown indica que a epoch de um namespace não pôde ser lida;
// nenhuma chave de entrada pode ser montada sem ela.
var ErrEpochUnknown = errors.New("cache epoch unknown")

// Version devolve a epoch atual de ns, inicializando com 1 se ausente.
// Com o store indisponível devolve ErrEpochUnknown.
func (c *Cache) Version(ctx context.Context, ns string) (int64, error) {
	key := versionKey(ns)
	for range 2 {
		raw, err := c.store.Get(ctx, key)
		if err == nil {
			v, perr := strconv.ParseInt(string(raw), 10, 64)
			if perr != nil || v < 1 {
				err = fmt.Errorf("bad epoch %q for %s", raw, ns)
				c.fail.report("cache.version", err)
				return 0, fmt.Errorf("%w: %w", ErrEpochUnknown, err)
			}
			return v, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			c.fail.report("cache.version", err)
			return 0, fmt.Errorf("%w: %w", ErrEpochUnknown, err)
		}
		created, err := c.store.SetNX(ctx, key, []byte("1"))
		if err != nil {
			c.fail.report("cache.version", err)
			return 0, fmt.Errorf("%w: %w", ErrEpochUnknown, err)
		}
		if created {
			return 1, nil
		}
		// outro processo criou entre o GET e o SETNX: lê de novo
	}
	return 0, fmt.Errorf("%w: %s keeps vanishing", ErrEpochUnknown, ns)
}

// Bump incrementa a epoch de ns e devolve a nova (0 se o store falhou).
// Chame sempre que os dados por trás de ns mudarem.
func (c *Cache) Bump(ctx context.Context, ns string) int64 {
	key := versionKey(ns)
	// garante epoch >= 2 mesmo que ninguém tenha lido ns antes (ausente == 1)
	if _, err := c.store.SetNX(ctx, key, []byte("1")); err != nil {
		c.fail.report("cache.bump", err)
		return 0
	}
	v, err := c.store.IncrBy(ctx, key, 1)
	if err != nil {
		c.fail.report("cache.bump", err)
		return 0
	}
	return v
}

// Key monta a chave determinística ns + epoch + digest(fingerprint).
// Falha com ErrEpochUnknown quando a epoch não pôde ser lida.
func (c *Cache) Key(ctx context.Context, ns string, input any) (string, error) {
	digest, err := Fingerprint(input)
	if err != nil {
		return "", err
	}
	v, err := c.Version(ctx, ns)
	if err != nil {
		return "", err
	}
	return entryKey(ns, v, digest), nil
}

// Fingerprint devolve os 16 primeiros hex do SHA-256 da serialização canônica de input.
func Fingerprint(input any) (string, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8]), nil
}

// envelope diferencia "valor calculado era nulo" de "não está no cache".
type envelope[T any] struct {
	V T `json:"v"`
}

// Wrap devolve o valor em cache para (ns, input) ou chama compute uma vez,
// guarda o resultado com ttl e o devolve.
//
// Misses concorrentes para a mesma chave podem chamar compute cada um.
// Erro de compute é devolvido e nada é guardado; falhas do store só
// desligam o cache para esta chamada. Sem epoch conhecida o store nem é tocado.
func Wrap[T any](ctx context.Context, c *Cache, ns string, input any, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	key, err := c.Key(ctx, ns, input)
	if err != nil {
		if !errors.Is(err, ErrEpochUnknown) {
			c.fail.log.Debug().Err(err).Str("ns", ns).Msg("uncacheable fingerprint")
		}
		return compute(ctx)
	}

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var env envelope[T]
		if jerr := json.Unmarshal(raw, &env); jerr == nil {
			return env.V, nil
		}
		c.fail.report("cache.decode", fmt.Errorf("corrupt entry %s", key))
	default:
		c.fail.report("cache.get", err)
	}

	v, err := compute(ctx)
	if err != nil {
		return v, err
	}

	payload, err := json.Marshal(envelope[T]{V: v})
	if err != nil {
		c.fail.log.Debug().Err(err).Str("ns", ns).Msg("uncacheable value")
		return v, nil
	}
	c.fail.report("cache.set", c.store.Set(ctx, key, payload, ttl))
	return v, nil
}
