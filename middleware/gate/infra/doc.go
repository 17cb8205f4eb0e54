// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - RedisStore / DisabledStore / Connect: adapter do store de contadores
//   - SQLBanStore / MemoryBanStore: armazenamento durável de banimentos
//   - TaskPool: pool limitado para tarefas best-effort (fire-and-forget)
//   - ChanPool: semáforo simples para limite de concorrência
//   - PromStats / RedisStatsStore / MemoryStatsStore: estatísticas das decisões
package infra
