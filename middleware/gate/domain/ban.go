package domain

import (
	"context"
	"time"
)

// BanRecord é o registro durável de banimento.
type BanRecord struct {
	IP        string    `json:"ip"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// BanStore é o armazenamento durável (fonte de verdade entre restarts).
// ip já chega normalizado.
type BanStore interface {
	UpsertBan(ctx context.Context, ip, reason string) error
	ListBans(ctx context.Context) ([]BanRecord, error)
	DeleteBan(ctx context.Context, ip string) error
}

// BanSink recebe os banimentos detectados pelo auto-ban.
// Persistência é responsabilidade de quem implementa.
type BanSink interface {
	Apply(ctx context.Context, ip, reason string) error
}

// BatchResult reporta o resultado de um ban/unban em lote.
type BatchResult struct {
	Applied []string `json:"applied"`
	Invalid []string `json:"invalid"`
	// Failed lista endereços válidos cuja escrita durável falhou.
	Failed []string `json:"failed"`
}
