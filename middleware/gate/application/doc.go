// Package application contém os casos de uso do gate de borda:
// cache versionado, rate limit de janela fixa, rastreamento de abuso,
// auto-ban e o conjunto de banidos em memória.
//
// Ele depende apenas do pacote domain e não conhece net/http nem Redis.
// Nenhuma operação de request propaga falha do store: cada uma devolve
// o seu valor padrão seguro (fail-open).
package application
