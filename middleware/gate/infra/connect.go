package infra

import (
	"context"
	"strings"
	"time"

	"blog-edge/middleware/gate/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type connectConfig struct {
	log         zerolog.Logger
	dialTimeout time.Duration
	storeOpts   []RedisOption
}

type ConnectOption func(*connectConfig)

func WithConnectLogger(l zerolog.Logger) ConnectOption {
	return func(c *connectConfig) { c.log = l }
}

// WithDialTimeout limita o PING inicial.
func WithDialTimeout(d time.Duration) ConnectOption {
	return func(c *connectConfig) { c.dialTimeout = d }
}

func WithStoreOptions(opts ...RedisOption) ConnectOption {
	return func(c *connectConfig) { c.storeOpts = append(c.storeOpts, opts...) }
}

// Connect cria o adapter do store a partir de uma URL redis:// (ou rediss://).
//
//   - URL vazia: DisabledStore, sem log (configuração ausente não é erro).
//   - URL inválida ou PING falhando: DisabledStore + warning.
//
// O modo desabilitado é permanente para o processo.
func Connect(ctx context.Context, url string, opts ...ConnectOption) domain.Store {
	cfg := connectConfig{
		log:         zerolog.Nop(),
		dialTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	url = strings.TrimSpace(url)
	if url == "" {
		return DisabledStore{}
	}

	ropt, err := redis.ParseURL(url)
	if err != nil {
		cfg.log.Warn().Err(err).Msg("invalid store url, running with store disabled")
		return DisabledStore{}
	}
	ropt.DialTimeout = cfg.dialTimeout
	// sem retry síncrono: falha vira valor padrão no serviço
	ropt.MaxRetries = -1

	rdb := redis.NewClient(ropt)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		cfg.log.Warn().Err(err).Str("addr", ropt.Addr).Msg("store unreachable, running with store disabled")
		return DisabledStore{}
	}

	cfg.log.Info().Str("addr", ropt.Addr).Int("db", ropt.DB).Msg("store connected")
	return NewRedisStore(rdb, cfg.storeOpts...)
}
