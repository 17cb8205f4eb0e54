package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"blog-edge/middleware/gate/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// TaskPool executa tarefas best-effort fora do caminho da requisição.
//
// A capacidade é limitada por um semáforo; quando cheio, Go descarta a tarefa
// em vez de bloquear. Cada tarefa recebe um contexto próprio (não o da
// requisição) com timeout, então sobrevive ao fim da request.
type TaskPool struct {
	sem     *semaphore.Weighted
	timeout time.Duration
	log     zerolog.Logger

	wg      sync.WaitGroup
	dropped atomic.Int64
}

var _ domain.TaskRunner = (*TaskPool)(nil)

func NewTaskPool(size int64, timeout time.Duration, log zerolog.Logger) *TaskPool {
	if size <= 0 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TaskPool{
		sem:     semaphore.NewWeighted(size),
		timeout: timeout,
		log:     log,
	}
}

func (p *TaskPool) Go(task func(ctx context.Context)) bool {
	if !p.sem.TryAcquire(1) {
		if n := p.dropped.Add(1); n == 1 || n%1000 == 0 {
			p.log.Warn().Int64("dropped_total", n).Msg("task pool full, dropping background task")
		}
		return false
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				p.log.Error().Interface("panic", r).Msg("background task panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		task(ctx)
	}()
	return true
}

// Dropped devolve quantas tarefas foram descartadas por falta de capacidade.
func (p *TaskPool) Dropped() int64 { return p.dropped.Load() }

// Wait espera as tarefas em voo terminarem ou o ctx encerrar (shutdown).
func (p *TaskPool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
