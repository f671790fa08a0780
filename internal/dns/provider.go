package dns

import "context"

// Zone is a provider-side namespace holding DNS records.
type Zone struct {
	ID   string
	Name string
}

// Record is a DNS record as stored by the provider. ID is empty for records
// that have not been created yet.
type Record struct {
	ID      string
	Name    string // FQDN, e.g. "home.example.com", or "@" for the apex on create
	Type    string // "A" or "AAAA"
	Content string // address text form
	Comment string
	Proxied bool
	Tags    []string
	TTL     int // 0 = provider default
}

// Provider is the remote DNS service the agent reconciles against.
type Provider interface {
	ListZones(ctx context.Context) ([]Zone, error)
	ListRecords(ctx context.Context, zoneID string) ([]Record, error)
	CreateRecord(ctx context.Context, zoneID string, record Record) error
	DeleteRecord(ctx context.Context, zoneID, recordID string) error
}
