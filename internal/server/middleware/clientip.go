package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the client address as reported by X-Forwarded-For (first hop), X-Real-IP or
// the connection's remote address, or "unknown". The headers are caller-controlled; use it for
// audit and logs only, never as a throttling key.
func ClientIP(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); v != "" {
		if i := strings.Index(v, ","); i > 0 {
			v = strings.TrimSpace(v[:i])
		}
		return v
	}
	if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
		return v
	}
	return remoteHost(r)
}

// ProxyTrust resolves the peer address of a request, honouring forwarding headers only when the
// connection comes from a trusted proxy. The zero value and nil trust nobody.
type ProxyTrust struct {
	prefixes []netip.Prefix
}

// NewProxyTrust parses entries as CIDR prefixes or single addresses.
func NewProxyTrust(entries []string) (*ProxyTrust, error) {
	p := &ProxyTrust{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			prefix, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			p.prefixes = append(p.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		addr = addr.Unmap()
		p.prefixes = append(p.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return p, nil
}

func (p *ProxyTrust) trusted(s string) bool {
	if p == nil {
		return false
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// PeerIP returns the address requests should be attributed to for throttling. From an untrusted
// peer that is the remote address. From a trusted proxy it is the rightmost X-Forwarded-For hop
// that is not itself a trusted proxy, then X-Real-IP, then the remote address.
func (p *ProxyTrust) PeerIP(r *http.Request) string {
	remote := remoteHost(r)
	if !p.trusted(remote) {
		return remote
	}
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if _, err := netip.ParseAddr(hop); err != nil {
				return remote
			}
			if !p.trusted(hop) {
				return hop
			}
		}
	}
	if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
		if _, err := netip.ParseAddr(v); err == nil {
			return v
		}
	}
	return remote
}

func remoteHost(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
