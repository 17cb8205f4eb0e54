package domain

import "errors"

var (
	// ErrNotFound indica chave/membro ausente no store.
	ErrNotFound = errors.New("not found")

	// ErrStoreDisabled é devolvido por todas as operações do adapter desabilitado
	// (sem REDIS_URL ou falha de conexão no start). Não é uma falha: os serviços
	// traduzem para o valor padrão seguro sem logar.
	ErrStoreDisabled = errors.New("store disabled")

	// ErrInvalidIP indica um literal de endereço que não passou na validação.
	ErrInvalidIP = errors.New("invalid ip address")
)
