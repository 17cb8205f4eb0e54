package domain

import "context"

// TaskRunner executa tarefas best-effort destacadas da requisição.
//
// Go não bloqueia: se não houver capacidade, a tarefa é descartada e
// Go devolve false. O ctx entregue à tarefa não é o da requisição.
type TaskRunner interface {
	Go(task func(ctx context.Context)) bool
}

// SlotPool representa um recurso com capacidade finita (ex: requisições em voo).
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// Ao adquirir, retorna uma função de release que deve ser chamada exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
