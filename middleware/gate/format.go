// utilitários de formatação para headers (sem depender de fmt).

package gate

import (
	"math"
	"strconv"
	"time"
)

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

// formatSeconds arredonda para cima; nunca devolve menos que 1.
func formatSeconds(d time.Duration) string {
	s := int64(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return strconv.FormatInt(s, 10)
}
