// Package domain define contratos e tipos de domínio do gate de borda
// (cache versionado, rate limit, rastreamento de abuso e banimentos).
//
// Este pacote não depende de net/http nem de implementações concretas de store.
// A intenção é permitir testes de unidade puros e desacoplar as regras
// de detalhes de infraestrutura (Redis, SQL, etc).
package domain
