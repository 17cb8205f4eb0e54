package application

import (
	"context"
	"slices"
	"sync"

	"blog-edge/middleware/gate/domain"

	"github.com/rs/zerolog"
)

// BanGate mantém o conjunto de banidos em memória, autoridade única do
// caminho quente (Has não faz I/O).
//
// Toda mutação grava primeiro no BanStore durável e só depois no conjunto:
// um crash no meio deixa o durável correto e o próximo Seed reconstrói a memória.
type BanGate struct {
	store domain.BanStore
	log   zerolog.Logger

	// seeding exclui mutações durante o Seed; mutações entre si só
	// serializam por endereço (locks). Has não passa por nenhum dos dois.
	seeding sync.RWMutex
	locks   ipLocks

	mu  sync.RWMutex
	set map[string]struct{}
}

var _ domain.BanSink = (*BanGate)(nil)

func NewBanGate(store domain.BanStore, log zerolog.Logger) *BanGate {
	return &BanGate{
		store: store,
		log:   log.With().Str("component", "bangate").Logger(),
		set:   make(map[string]struct{}),
		locks: ipLocks{held: make(map[string]*ipLock)},
	}
}

// Seed substitui o conjunto em memória por todos os registros duráveis.
func (g *BanGate) Seed(ctx context.Context) error {
	g.seeding.Lock()
	defer g.seeding.Unlock()

	recs, err := g.store.ListBans(ctx)
	if err != nil {
		return err
	}

	set := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		ip, err := domain.NormalizeIP(rec.IP)
		if err != nil {
			g.log.Warn().Str("ip", rec.IP).Msg("skipping invalid durable ban record")
			continue
		}
		set[ip] = struct{}{}
	}

	g.mu.Lock()
	g.set = set
	g.mu.Unlock()

	g.log.Info().Int("banned", len(set)).Msg("ban set seeded")
	return nil
}

// Has é a checagem O(1) do caminho quente.
func (g *BanGate) Has(ip string) bool {
	norm, err := domain.NormalizeIP(ip)
	if err != nil {
		return false
	}
	g.mu.RLock()
	_, ok := g.set[norm]
	g.mu.RUnlock()
	return ok
}

func (g *BanGate) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.set)
}

// Snapshot devolve os endereços banidos, ordenados.
func (g *BanGate) Snapshot() []string {
	g.mu.RLock()
	out := make([]string, 0, len(g.set))
	for ip := range g.set {
		out = append(out, ip)
	}
	g.mu.RUnlock()
	slices.Sort(out)
	return out
}

// List lê os registros duráveis (com motivo e data), não a memória.
func (g *BanGate) List(ctx context.Context) ([]domain.BanRecord, error) {
	return g.store.ListBans(ctx)
}

// Apply implementa domain.BanSink para o auto-ban.
func (g *BanGate) Apply(ctx context.Context, ip, reason string) error {
	norm, err := domain.NormalizeIP(ip)
	if err != nil {
		return err
	}

	defer g.lock(norm)()
	return g.addLocked(ctx, norm, reason)
}

// lock segura a mutação de um endereço (durável + memória) e devolve o unlock.
func (g *BanGate) lock(ip string) func() {
	g.seeding.RLock()
	unlock := g.locks.lock(ip)
	return func() {
		unlock()
		g.seeding.RUnlock()
	}
}

func (g *BanGate) addLocked(ctx context.Context, ip, reason string) error {
	if err := g.store.UpsertBan(ctx, ip, reason); err != nil {
		return err
	}
	g.mu.Lock()
	g.set[ip] = struct{}{}
	g.mu.Unlock()
	return nil
}

func (g *BanGate) removeLocked(ctx context.Context, ip string) error {
	if err := g.store.DeleteBan(ctx, ip); err != nil {
		return err
	}
	g.mu.Lock()
	delete(g.set, ip)
	g.mu.Unlock()
	return nil
}

// Add bane um lote. Literais inválidos são reportados e não abortam o resto.
func (g *BanGate) Add(ctx context.Context, ips []string, reason string) domain.BatchResult {
	return g.batch(ctx, ips, func(ip string) error { return g.addLocked(ctx, ip, reason) }, "ban")
}

// Remove desbane um lote, com as mesmas regras de Add.
func (g *BanGate) Remove(ctx context.Context, ips []string) domain.BatchResult {
	return g.batch(ctx, ips, func(ip string) error { return g.removeLocked(ctx, ip) }, "unban")
}

func (g *BanGate) batch(ctx context.Context, ips []string, apply func(ip string) error, op string) domain.BatchResult {
	res := domain.BatchResult{Applied: []string{}, Invalid: []string{}, Failed: []string{}}
	seen := make(map[string]struct{}, len(ips))

	for _, raw := range ips {
		ip, err := domain.NormalizeIP(raw)
		if err != nil {
			res.Invalid = append(res.Invalid, raw)
			continue
		}
		if _, dup := seen[ip]; dup {
			continue
		}
		seen[ip] = struct{}{}

		unlock := g.lock(ip)
		err = apply(ip)
		unlock()
		if err != nil {
			g.log.Error().Err(err).Str("ip", ip).Str("op", op).Msg("durable ban store write failed")
			res.Failed = append(res.Failed, ip)
			continue
		}
		res.Applied = append(res.Applied, ip)
	}

	if len(res.Applied) > 0 {
		g.log.Info().Str("op", op).Strs("ips", res.Applied).Msg("ban set updated")
	}
	return res
}

// ipLocks é um mutex por endereço; entradas somem quando ninguém as segura.
type ipLocks struct {
	mu   sync.Mutex
	held map[string]*ipLock
}

type ipLock struct {
	sync.Mutex
	refs int
}

func (l *ipLocks) lock(ip string) func() {
	l.mu.Lock()
	e, ok := l.held[ip]
	if !ok {
		e = &ipLock{}
		l.held[ip] = e
	}
	e.refs++
	l.mu.Unlock()

	e.Lock()
	return func() {
		e.Unlock()
		l.mu.Lock()
		if e.refs--; e.refs == 0 {
			delete(l.held, ip)
		}
		l.mu.Unlock()
	}
}
