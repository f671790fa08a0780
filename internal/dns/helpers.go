package dns

import (
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

// Record types managed by the agent.
const (
	TypeA    = "A"
	TypeAAAA = "AAAA"
)

// TypeFor returns the record type that publishes addr.
func TypeFor(addr netip.Addr) string {
	if addr.Unmap().Is4() {
		return TypeA
	}
	return TypeAAAA
}

// FQDN resolves a configured record name against its zone.
// e.g. ("@", "example.com") → "example.com"
// e.g. ("home", "example.com") → "home.example.com"
// e.g. ("home.example.com", "example.com") → "home.example.com"
func FQDN(name, zone string) string {
	zone = strings.TrimSuffix(zone, ".")
	name = strings.TrimSuffix(name, ".")
	if name == "@" || name == "" {
		return zone
	}
	if dns.IsSubDomain(dns.Fqdn(zone), dns.Fqdn(name)) {
		return name
	}
	return name + "." + zone
}
