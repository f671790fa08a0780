package agent

import (
	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/config"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/dns/cloudflare"
)

// CloudflareProvider builds a Cloudflare client that retries transport
// failures on reads and deletes.
func CloudflareProvider(cfg *config.Config, log logr.Logger) (dns.Provider, error) {
	p, err := cloudflare.New(log, cfg.ProviderSettings())
	if err != nil {
		return nil, err
	}
	return dns.WithRetry(p, dns.DefaultBackoff), nil
}
