package infra

import (
	"context"
	"maps"
	"sync"

	"blog-edge/middleware/gate/domain"
)

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu        sync.Mutex
	total     map[domain.Verdict]int64
	byBucket  map[domain.Bucket]int64
	byIP      map[string]int64
	trackIPs  bool
	lastEvent domain.StatsEvent
}

type MemoryStatsOption func(*MemoryStatsStore)

// WithTrackIPs conta rejeições por IP (cuidado com cardinalidade).
func WithTrackIPs(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackIPs = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:    make(map[domain.Verdict]int64),
		byBucket: make(map[domain.Bucket]int64),
		byIP:     make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Verdict]++
	s.lastEvent = ev
	if ev.Verdict == domain.VerdictAllowed {
		return nil
	}
	if ev.Bucket != "" {
		s.byBucket[ev.Bucket]++
	}
	if s.trackIPs && ev.IP != "" {
		s.byIP[ev.IP]++
	}
	return nil
}

func (s *MemoryStatsStore) Total(v domain.Verdict) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total[v]
}

// RejectedByBucket devolve uma cópia dos contadores de rejeição por bucket.
func (s *MemoryStatsStore) RejectedByBucket() map[domain.Bucket]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.byBucket)
}

func (s *MemoryStatsStore) RejectedByIP() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.byIP)
}

func (s *MemoryStatsStore) Last() domain.StatsEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEvent
}
