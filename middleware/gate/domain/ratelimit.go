package domain

// Camada de domínio do rate limit (janela fixa por bucket + chave).

import "time"

// Bucket agrupa contadores de rate limit (ex: global, login, comment).
type Bucket string

const (
	BucketGlobal  Bucket = "global"
	BucketAPI     Bucket = "api"
	BucketLogin   Bucket = "login"
	BucketComment Bucket = "comment"
	BucketSearch  Bucket = "search"
	BucketUpload  Bucket = "upload"
	BucketChat    Bucket = "chat"
)

// Limit é um par limite/janela nomeado para um bucket.
type Limit struct {
	Bucket Bucket
	Max    int64
	Window time.Duration
}

// Limites usados nos call sites. São constantes enumeradas de propósito:
// não vêm de configuração.
var (
	LimitGlobal  = Limit{Bucket: BucketGlobal, Max: 300, Window: time.Minute}
	LimitAPI     = Limit{Bucket: BucketAPI, Max: 120, Window: time.Minute}
	LimitLogin   = Limit{Bucket: BucketLogin, Max: 10, Window: 5 * time.Minute}
	LimitComment = Limit{Bucket: BucketComment, Max: 5, Window: time.Minute}
	LimitSearch  = Limit{Bucket: BucketSearch, Max: 30, Window: time.Minute}
	LimitUpload  = Limit{Bucket: BucketUpload, Max: 20, Window: 10 * time.Minute}
	LimitChat    = Limit{Bucket: BucketChat, Max: 20, Window: time.Minute}
)

// RateResult é o resultado de uma checagem de janela fixa.
type RateResult struct {
	Allowed   bool
	Count     int64
	Limit     int64
	Remaining int64
	// Reset é o TTL restante do contador (ou a janela, se não foi possível ler).
	Reset time.Duration
}
