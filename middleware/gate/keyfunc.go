package gate

import (
	"net"
	"net/http"
	"strings"

	"blog-edge/middleware/gate/domain"
)

// KeyFunc extrai o endereço do cliente de um request.
type KeyFunc func(r *http.Request) string

// ClientIP devolve o IP normalizado do cliente.
//
// Com trustXFF, usa o primeiro IP válido de X-Forwarded-For (cliente original);
// só ligue atrás de um proxy que sobrescreve esse header.
func ClientIP(trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip, err := domain.NormalizeIP(first); err == nil {
					return ip
				}
			}
		}

		// fallback: RemoteAddr
		addr := strings.TrimSpace(r.RemoteAddr)
		if host, _, err := net.SplitHostPort(addr); err == nil {
			addr = host
		}
		if ip, err := domain.NormalizeIP(addr); err == nil {
			return ip
		}
		if addr != "" {
			return addr
		}
		return "unknown"
	}
}
