package api

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPResolver picks the address that rate limits and request logs are
// keyed by. Forwarding headers count only when the peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver accepts bare addresses as well as CIDR prefixes.
func NewClientIPResolver(trustedProxies []string) (*ClientIPResolver, error) {
	r := &ClientIPResolver{}
	for _, raw := range trustedProxies {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}

		if addr, err := netip.ParseAddr(value); err == nil {
			addr = addr.Unmap()
			r.trusted = append(r.trusted, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}

		prefix, err := netip.ParsePrefix(value)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", value, err)
		}
		r.trusted = append(r.trusted, prefix.Masked())
	}
	return r, nil
}

// Resolve walks X-Forwarded-For from the nearest hop outwards and returns the
// first address that is not a trusted proxy. X-Real-IP is used when the
// forwarded chain holds nothing usable.
func (r *ClientIPResolver) Resolve(req *http.Request) string {
	peer, ok := parseAddr(req.RemoteAddr)
	if !ok {
		return "unknown"
	}
	if !r.isTrusted(peer) {
		return peer.String()
	}

	hops := strings.Split(req.Header.Get("X-Forwarded-For"), ",")
	var outermost netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		hop, ok := parseAddr(hops[i])
		if !ok {
			continue
		}
		if !r.isTrusted(hop) {
			return hop.String()
		}
		outermost = hop
	}

	if realIP, ok := parseAddr(req.Header.Get("X-Real-IP")); ok {
		return realIP.String()
	}
	if outermost.IsValid() {
		return outermost.String()
	}
	return peer.String()
}

func (r *ClientIPResolver) isTrusted(addr netip.Addr) bool {
	for _, prefix := range r.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseAddr accepts "ip", "ip:port", "[v6]:port" and quoted forms.
func parseAddr(value string) (netip.Addr, bool) {
	value = strings.Trim(strings.TrimSpace(value), `"`)
	if value == "" {
		return netip.Addr{}, false
	}

	if addr, err := netip.ParseAddr(value); err == nil {
		return addr.Unmap(), true
	}
	if addrPort, err := netip.ParseAddrPort(value); err == nil {
		return addrPort.Addr().Unmap(), true
	}
	return netip.Addr{}, false
}
