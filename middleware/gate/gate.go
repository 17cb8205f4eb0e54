package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blog-edge/middleware/gate/application"
	"blog-edge/middleware/gate/domain"
	"blog-edge/middleware/gate/infra"

	"github.com/rs/zerolog"
)

// Config monta um Gate. Só BanStore é obrigatório.
type Config struct {
	// StoreURL é a URL redis://; vazia = modo desabilitado permanente.
	StoreURL     string
	StoreTimeout time.Duration
	// Store, se não nil, substitui StoreURL (testes, Redis já conectado).
	Store domain.Store

	BanStore domain.BanStore

	// Tasks, se nil, vira um infra.TaskPool com Workers/TaskTimeout.
	Tasks       domain.TaskRunner
	Workers     int64
	TaskTimeout time.Duration

	Abuse        application.AbuseConfig
	BanThreshold float64

	Stats  domain.StatsStore
	Logger *zerolog.Logger
}

// Gate é o objeto de contexto explícito do request path: handle do store,
// conjunto de banidos e os serviços. Construído uma vez no start e passado
// por referência; não há estado global.
type Gate struct {
	Store   domain.Store
	Cache   *application.Cache
	Limiter *application.RateLimiter
	Abuse   *application.AbuseTracker
	AutoBan *application.AutoBan
	Bans    *application.BanGate
	Tasks   domain.TaskRunner
	Stats   domain.StatsStore

	log  zerolog.Logger
	pool *infra.TaskPool
}

// New conecta o store (ou cai para o modo desabilitado) e semeia os banidos
// a partir do BanStore. Só falha se o BanStore não puder ser lido.
func New(ctx context.Context, cfg Config) (*Gate, error) {
	if cfg.BanStore == nil {
		return nil, errors.New("gate: BanStore is required")
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	store := cfg.Store
	if store == nil {
		store = infra.Connect(ctx, cfg.StoreURL,
			infra.WithConnectLogger(log),
			infra.WithStoreOptions(infra.WithOpTimeout(cfg.StoreTimeout)),
		)
	}

	g := &Gate{
		Store:   store,
		Cache:   application.NewCache(store, log),
		Limiter: application.NewRateLimiter(store, log),
		Abuse:   application.NewAbuseTracker(store, cfg.Abuse, log),
		AutoBan: application.NewAutoBan(store, cfg.BanThreshold, log),
		Bans:    application.NewBanGate(cfg.BanStore, log),
		Tasks:   cfg.Tasks,
		Stats:   cfg.Stats,
		log:     log,
	}
	if g.Tasks == nil {
		workers := cfg.Workers
		if workers <= 0 {
			workers = 64
		}
		g.pool = infra.NewTaskPool(workers, cfg.TaskTimeout, log)
		g.Tasks = g.pool
	}

	if err := g.Bans.Seed(ctx); err != nil {
		return nil, fmt.Errorf("gate: seed bans: %w", err)
	}

	log.Info().Bool("store_enabled", store.Enabled()).Int("banned", g.Bans.Len()).Msg("edge gate ready")
	return g, nil
}

// Enabled é informativo: todas as operações funcionam igual nos dois modos.
func (g *Gate) Enabled() bool { return g.Store.Enabled() }

// Report registra um evento suspeito e confere o auto-ban em background.
// Não espera o resultado; devolve false se a tarefa foi descartada.
func (g *Gate) Report(ip string, bucket domain.Bucket, kind domain.Kind) bool {
	return g.Tasks.Go(func(ctx context.Context) {
		g.Abuse.RecordSuspicious(ctx, ip, bucket, kind)
		if g.AutoBan.CheckAndAutoBan(ctx, ip, g.Bans) {
			g.record(ctx, domain.StatsEvent{IP: ip, Bucket: bucket, Verdict: domain.VerdictAutoBanned})
		}
	})
}

func (g *Gate) record(ctx context.Context, ev domain.StatsEvent) {
	if g.Stats == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if err := g.Stats.Record(ctx, ev); err != nil {
		g.log.Debug().Err(err).Msg("stats record failed")
	}
}

// Close espera as tarefas em voo (até ctx) e fecha o store.
func (g *Gate) Close(ctx context.Context) error {
	var err error
	if g.pool != nil {
		err = g.pool.Wait(ctx)
	}
	return errors.Join(err, g.Store.Close())
}

// Wrap é application.Wrap sobre o cache do gate.
func Wrap[T any](ctx context.Context, g *Gate, ns string, input any, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	return application.Wrap(ctx, g.Cache, ns, input, ttl, compute)
}
