package application

import (
	"context"
	"errors"
	"fmt"

	"blog-edge/middleware/gate/domain"

	"github.com/rs/zerolog"
)

// DefaultBanThreshold é o score que dispara o auto-ban.
const DefaultBanThreshold float64 = 50

// AutoBan confere o score de abuso e entrega o endereço ao BanSink quando o
// limite é atingido. Detecção fica aqui; persistência é do sink.
type AutoBan struct {
	store     domain.Store
	threshold float64
	log       zerolog.Logger
	fail      *failures
}

func NewAutoBan(store domain.Store, threshold float64, log zerolog.Logger) *AutoBan {
	if threshold <= 0 {
		threshold = DefaultBanThreshold
	}
	return &AutoBan{
		store:     store,
		threshold: threshold,
		log:       log.With().Str("component", "autoban").Logger(),
		fail:      newFailures(log, "autoban"),
	}
}

func (a *AutoBan) Threshold() float64 { return a.threshold }

// CheckAndAutoBan devolve true se ip atingiu o limite e o sink aplicou o ban.
//
// Depois de um Apply bem sucedido o score é zerado (membro removido), então a
// mesma violação não é reportada de novo. Se o sink falhar o score fica, e a
// próxima rejeição tenta outra vez.
func (a *AutoBan) CheckAndAutoBan(ctx context.Context, ip string, sink domain.BanSink) bool {
	ip, err := domain.NormalizeIP(ip)
	if err != nil || sink == nil {
		return false
	}

	score, err := a.store.ZScore(ctx, abuseScoreKey, ip)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.fail.report("autoban.score", err)
		}
		return false
	}
	if score < a.threshold {
		return false
	}

	reason := fmt.Sprintf("auto-ban: abuse score %g reached threshold %g", score, a.threshold)
	if err := sink.Apply(ctx, ip, reason); err != nil {
		a.log.Error().Err(err).Str("ip", ip).Float64("score", score).Msg("ban sink failed, keeping score")
		return false
	}

	a.fail.report("autoban.reset", a.store.ZRem(ctx, abuseScoreKey, ip))
	a.log.Warn().Str("ip", ip).Float64("score", score).Msg("address auto-banned")
	return true
}
