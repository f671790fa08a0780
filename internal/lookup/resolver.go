// Package lookup checks what the managed names resolve to in public DNS.
package lookup

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

const (
	resolvConf     = "/etc/resolv.conf"
	fallbackServer = "1.1.1.1:53"
	defaultTimeout = 3 * time.Second
)

// Resolver sends plain queries to a single nameserver.
type Resolver struct {
	Server string
	Client *dns.Client
}

// NewResolver queries server, or the first nameserver of /etc/resolv.conf
// when server is empty, falling back to 1.1.1.1.
func NewResolver(server string) *Resolver {
	if server == "" {
		server = fallbackServer
		if cfg, err := dns.ClientConfigFromFile(resolvConf); err == nil && len(cfg.Servers) > 0 {
			server = net.JoinHostPort(cfg.Servers[0], cfg.Port)
		}
	}
	return &Resolver{
		Server: server,
		Client: &dns.Client{Timeout: defaultTimeout},
	}
}

// Lookup returns the A or AAAA addresses published for name.
func (r *Resolver) Lookup(ctx context.Context, name string, qtype uint16) ([]netip.Addr, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	resp, _, err := r.Client.ExchangeContext(ctx, m, r.Server)
	if err != nil {
		return nil, fmt.Errorf("lookup %s %s: %w", name, dns.TypeToString[qtype], err)
	}
	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("lookup %s %s: %s", name, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}

	var out []netip.Addr
	for _, rr := range resp.Answer {
		var ip net.IP
		switch v := rr.(type) {
		case *dns.A:
			if qtype == dns.TypeA {
				ip = v.A
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				ip = v.AAAA
			}
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			out = append(out, addr.Unmap())
		}
	}
	return out, nil
}
