// Package netacl restricts HTTP access to clients whose address falls in a
// configured list of networks.
package netacl

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// List is a set of allowed networks. An empty list allows every address.
type List struct {
	prefixes []netip.Prefix
}

// Parse builds a List from CIDR blocks or single addresses.
func Parse(entries []string) (*List, error) {
	l := &List{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.Contains(e, "/") {
			addr, err := netip.ParseAddr(e)
			if err != nil {
				return nil, fmt.Errorf("invalid address %q: %w", e, err)
			}
			l.prefixes = append(l.prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(e)
		if err != nil {
			return nil, fmt.Errorf("invalid network %q: %w", e, err)
		}
		l.prefixes = append(l.prefixes, p.Masked())
	}
	return l, nil
}

// Empty reports whether the list allows everything.
func (l *List) Empty() bool { return l == nil || len(l.prefixes) == 0 }

// Allows reports whether addr is in one of the networks.
func (l *List) Allows(addr netip.Addr) bool {
	if l.Empty() {
		return true
	}
	addr = addr.Unmap()
	for _, p := range l.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// AllowsRemote checks an http.Request RemoteAddr ("host:port" or bare host).
func (l *List) AllowsRemote(remote string) bool {
	if l.Empty() {
		return true
	}
	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return l.Allows(addr)
}

// Middleware rejects requests from outside the list with 403.
func (l *List) Middleware(next http.Handler) http.Handler {
	if l.Empty() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.AllowsRemote(r.RemoteAddr) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
