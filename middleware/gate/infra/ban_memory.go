package infra

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"blog-edge/middleware/gate/domain"
)

// MemoryBanStore é um BanStore em memória.
// Útil para testes e para o example-server; não sobrevive a restart.
type MemoryBanStore struct {
	mu   sync.Mutex
	bans map[string]domain.BanRecord
	// fail, se não nil, é devolvido por todas as operações (simula banco fora).
	fail error
}

func NewMemoryBanStore() *MemoryBanStore {
	return &MemoryBanStore{bans: make(map[string]domain.BanRecord)}
}

func (s *MemoryBanStore) UpsertBan(_ context.Context, ip, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	rec, ok := s.bans[ip]
	if !ok {
		rec = domain.BanRecord{IP: ip, CreatedAt: time.Now().UTC()}
	}
	rec.Reason = reason
	s.bans[ip] = rec
	return nil
}

func (s *MemoryBanStore) ListBans(context.Context) ([]domain.BanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([]domain.BanRecord, 0, len(s.bans))
	for _, rec := range s.bans {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b domain.BanRecord) int { return strings.Compare(a.IP, b.IP) })
	return out, nil
}

func (s *MemoryBanStore) DeleteBan(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	delete(s.bans, ip)
	return nil
}

// SetFail troca o erro simulado com segurança entre goroutines.
func (s *MemoryBanStore) SetFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}
