package domain

import (
	"net/netip"
	"strings"
)

const mappedPrefix = "::ffff:"

// NormalizeIP remove o prefixo IPv4-mapped-IPv6 e valida o literal.
// Devolve a forma canônica (netip) ou ErrInvalidIP.
func NormalizeIP(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s) > len(mappedPrefix) && strings.EqualFold(s[:len(mappedPrefix)], mappedPrefix) {
		if addr, err := netip.ParseAddr(s[len(mappedPrefix):]); err == nil && addr.Is4() {
			return addr.String(), nil
		}
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return "", ErrInvalidIP
	}
	return addr.Unmap().String(), nil
}
