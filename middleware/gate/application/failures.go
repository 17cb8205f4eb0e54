package application

import (
	"errors"
	"time"

	"blog-edge/middleware/gate/domain"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// failures registra falhas transitórias do store sem inundar o log:
// no máximo uma linha por intervalo por componente.
// ErrStoreDisabled e ErrNotFound não são falhas e nunca são logados.
type failures struct {
	log   zerolog.Logger
	every *rate.Sometimes
}

func newFailures(log zerolog.Logger, component string) *failures {
	return &failures{
		log:   log.With().Str("component", component).Logger(),
		every: &rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

func (f *failures) report(op string, err error) {
	if err == nil || errors.Is(err, domain.ErrStoreDisabled) || errors.Is(err, domain.ErrNotFound) {
		return
	}
	f.every.Do(func() {
		f.log.Warn().Err(err).Str("op", op).Msg("store call failed, using safe default")
	})
}
