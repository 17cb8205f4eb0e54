// Package gate é a borda de proteção do blog: todo request passa por aqui antes
// da regra de negócio.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos (sem net/http, sem Redis)
//   - application: casos de uso (cache versionado, rate limit, abuso, auto-ban, banidos)
//   - infra: implementações concretas (Redis, SQL, pool de tarefas, semáforo, stats)
//   - gate (este pacote): objeto Gate + middlewares HTTP + API de operador
//
// Fluxo por request:
//
//  1. Extrai o IP do cliente (RemoteAddr ou X-Forwarded-For) e normaliza
//  2. Se o IP está no conjunto de banidos (memória), responde 403
//  3. Confere cada Rule que casa com o request (janela fixa por bucket)
//  4. Na primeira rejeição responde 429 e dispara em background:
//     RecordSuspicious -> CheckAndAutoBan -> BanGate.Apply
//  5. Se permitido, chama o próximo handler
//
// Sem REDIS_URL (ou com o Redis fora) rate limit e abuso deixam de atuar
// (fail-open), mas os bans já carregados continuam valendo.
package gate
