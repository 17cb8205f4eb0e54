package domain

import (
	"strings"
	"time"
)

// Kind classifica um evento suspeito.
//
// Kinds terminados em "_block" representam uma requisição rejeitada; os demais
// são apenas registrados.
type Kind string

const (
	KindIPBlock    Kind = "ip_block"
	KindRouteBlock Kind = "route_block"
	KindProbe      Kind = "probe"
	KindAuthFail   Kind = "auth_fail"
)

// Blocking informa se o evento corresponde a uma requisição rejeitada.
func (k Kind) Blocking() bool { return strings.HasSuffix(string(k), "_block") }

// Suspect é uma linha da listagem de endereços suspeitos.
type Suspect struct {
	IP       string    `json:"ip"`
	Score    float64   `json:"score"`
	LastSeen time.Time `json:"last_seen"`
	// Counters usa chaves "bucket:<nome>" e "kind:<nome>"; só valores != 0.
	Counters map[string]int64 `json:"counters"`
}
