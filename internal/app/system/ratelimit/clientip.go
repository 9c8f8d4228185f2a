package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the host part of r.RemoteAddr. Behind a reverse proxy,
// mount RealIP first so RemoteAddr holds the forwarded client address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// TrustedProxies is the set of peers whose X-Forwarded-For and X-Real-IP
// headers are believed.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies reads a comma-separated list of IPs and CIDRs.
func ParseTrustedProxies(list string) (TrustedProxies, error) {
	var tp TrustedProxies
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.Contains(item, "/") {
			ip := net.ParseIP(item)
			if ip == nil {
				return TrustedProxies{}, fmt.Errorf("trusted proxy %q is not an IP or CIDR", item)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			tp.nets = append(tp.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(item)
		if err != nil {
			return TrustedProxies{}, fmt.Errorf("trusted proxy %q: %w", item, err)
		}
		tp.nets = append(tp.nets, n)
	}
	return tp, nil
}

// Len reports how many networks are trusted.
func (tp TrustedProxies) Len() int { return len(tp.nets) }

func (tp TrustedProxies) trusts(ip net.IP) bool {
	for _, n := range tp.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// RealIP rewrites r.RemoteAddr to the forwarded client address when the
// direct peer is a trusted proxy. X-Forwarded-For is read right to left and
// the first hop outside the trusted set wins; X-Real-IP is the fallback.
// Requests from any other peer keep their RemoteAddr untouched.
func RealIP(tp TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer := net.ParseIP(ClientIP(r))
			if peer != nil && tp.trusts(peer) {
				if ip := tp.forwarded(r); ip != "" {
					r.RemoteAddr = net.JoinHostPort(ip, "0")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (tp TrustedProxies) forwarded(r *http.Request) string {
	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				return ""
			}
			if !tp.trusts(ip) {
				return ip.String()
			}
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return ""
}
