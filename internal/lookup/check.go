package lookup

import (
	"context"
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/miekg/dns"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/address"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/config"
	records "github.com/yuriy-kovalchuk/yk-ddns/internal/dns"
)

// Finding compares the addresses a managed name should publish with what
// it resolves to.
type Finding struct {
	Name    string
	Type    string
	Want    []netip.Addr
	Got     []netip.Addr
	Proxied bool
	Err     error
}

// Missing returns the wanted addresses the name does not resolve to.
func (f Finding) Missing() []netip.Addr {
	var out []netip.Addr
	for _, w := range f.Want {
		if !slices.Contains(f.Got, w) {
			out = append(out, w)
		}
	}
	return out
}

// OK reports whether the name resolves to every wanted address. Proxied
// names resolve to the provider's edge and are not compared.
func (f Finding) OK() bool {
	return f.Err == nil && (f.Proxied || len(f.Missing()) == 0)
}

// Check resolves every managed name and type that current should be
// published under.
func Check(ctx context.Context, r *Resolver, cfg *config.Config, current address.Set) []Finding {
	type key struct{ name, typ string }
	wanted := map[key]*Finding{}
	var order []key

	for _, zone := range cfg.Zones {
		for _, tpl := range zone.Records {
			name := records.FQDN(tpl.Name, zone.Name)
			for _, addr := range address.Sorted(current) {
				if !tpl.Family.Related(addr) {
					continue
				}
				k := key{name, records.TypeFor(addr)}
				f, ok := wanted[k]
				if !ok {
					f = &Finding{Name: name, Type: k.typ}
					wanted[k] = f
					order = append(order, k)
				}
				f.Proxied = f.Proxied || tpl.Proxied
				if !slices.Contains(f.Want, addr) {
					f.Want = append(f.Want, addr)
				}
			}
		}
	}

	out := make([]Finding, 0, len(order))
	for _, k := range order {
		f := wanted[k]
		f.Got, f.Err = r.Lookup(ctx, f.Name, dns.StringToType[f.Type])
		out = append(out, *f)
	}
	return out
}

// FormatFindings renders findings one name per line.
func FormatFindings(findings []Finding) string {
	var b strings.Builder

	if len(findings) == 0 {
		fmt.Fprintf(&b, "No managed records for the current addresses\n")
		return b.String()
	}

	for _, f := range findings {
		status := "ok"
		switch {
		case f.Err != nil:
			status = "error"
		case f.Proxied:
			status = "proxied"
		case !f.OK():
			status = "missing"
		}
		fmt.Fprintf(&b, "%-8s %-5s %s\n", status, f.Type, f.Name)
		fmt.Fprintf(&b, "    want: %s\n", joinAddrs(f.Want))
		if f.Err != nil {
			fmt.Fprintf(&b, "    error: %v\n", f.Err)
			continue
		}
		fmt.Fprintf(&b, "    got:  %s\n", joinAddrs(f.Got))
	}
	return b.String()
}

func joinAddrs(addrs []netip.Addr) string {
	if len(addrs) == 0 {
		return "<none>"
	}
	s := make([]string, len(addrs))
	for i, a := range addrs {
		s[i] = a.String()
	}
	return strings.Join(s, ", ")
}
