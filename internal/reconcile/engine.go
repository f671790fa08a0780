// Package reconcile decides which provider records to create or delete when
// the host's public addresses change, and issues those writes.
package reconcile

import (
	"context"
	"net/netip"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/address"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/config"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/dns"
)

// Engine applies address differences to the provider.
type Engine struct {
	Provider dns.Provider
	Log      logr.Logger
}

// New returns an Engine writing through p.
func New(p dns.Provider, log logr.Logger) *Engine {
	return &Engine{Provider: p, Log: log}
}

// Apply reconciles a single address difference against the snapshot.
func (e *Engine) Apply(ctx context.Context, cfg *config.Config, diff address.Difference, snap Snapshot) Result {
	switch diff.Kind {
	case address.Added:
		return e.applyAdded(ctx, cfg, diff.Addr, snap)
	case address.Removed:
		return e.applyRemoved(ctx, cfg, diff.Addr, snap)
	}
	return Result{}
}

func (e *Engine) applyAdded(ctx context.Context, cfg *config.Config, addr netip.Addr, snap Snapshot) Result {
	var res Result
	for _, rule := range cfg.Zones {
		zone, ok := snap.Zone(rule.Name)
		if !ok {
			e.Log.V(1).Info("zone not found at provider, skipping", "zone", rule.Name)
			continue
		}
		if _, ok := snap.RecordsFor(zone.Name); !ok {
			e.Log.Info("zone records unknown this cycle, suppressing creates", "zone", zone.Name)
			res.unlisted(zone.Name)
			continue
		}
		for _, tpl := range rule.Records {
			if !tpl.Family.Related(addr) {
				continue
			}
			record := desiredRecord(cfg, zone, tpl, addr)
			err := e.Provider.CreateRecord(ctx, zone.ID, record)
			if err != nil {
				e.Log.Error(err, "failed to create record", "zone", zone.Name, "name", record.Name, "type", record.Type, "content", record.Content)
			} else {
				e.Log.Info("created record", "zone", zone.Name, "name", record.Name, "type", record.Type, "content", record.Content)
			}
			res.add(Action{Op: OpCreate, Zone: zone.Name, Record: record, Err: err})
		}
	}
	return res
}

func desiredRecord(cfg *config.Config, zone dns.Zone, tpl config.RecordTemplate, addr netip.Addr) dns.Record {
	return dns.Record{
		Name:    dns.FQDN(tpl.Name, zone.Name),
		Type:    dns.TypeFor(addr),
		Content: addr.String(),
		Comment: TaggedComment(cfg.OwnerTag(), tpl.Comment),
		Proxied: tpl.Proxied,
		Tags:    tpl.Tags,
		TTL:     tpl.TTL,
	}
}

func (e *Engine) applyRemoved(ctx context.Context, cfg *config.Config, addr netip.Addr, snap Snapshot) Result {
	var res Result
	tag := cfg.OwnerTag()
	claimed := make(map[string]bool)
	foreign := make(map[string]bool)

	for _, rule := range cfg.Zones {
		zone, ok := snap.Zone(rule.Name)
		if !ok {
			e.Log.V(1).Info("zone not found at provider, skipping", "zone", rule.Name)
			continue
		}
		records, ok := snap.RecordsFor(zone.Name)
		if !ok {
			e.Log.Info("zone records unknown this cycle, suppressing deletes", "zone", zone.Name)
			res.unlisted(zone.Name)
			continue
		}
		for _, tpl := range rule.Records {
			if !tpl.Family.Related(addr) {
				continue
			}
			rec, found := pickOwned(records, addr, dns.FQDN(tpl.Name, zone.Name), tag, claimed, foreign)
			if !found {
				continue
			}
			claimed[rec.ID] = true

			err := e.Provider.DeleteRecord(ctx, zone.ID, rec.ID)
			if err != nil {
				e.Log.Error(err, "failed to delete record", "zone", zone.Name, "name", rec.Name, "id", rec.ID)
			} else {
				e.Log.Info("deleted record", "zone", zone.Name, "name", rec.Name, "type", rec.Type, "content", rec.Content)
			}
			res.add(Action{Op: OpDelete, Zone: zone.Name, Record: rec, Err: err})
		}
	}
	if len(foreign) > 0 {
		e.Log.V(1).Info("records with removed address are not owned by this device, leaving them", "content", addr.String(), "count", len(foreign))
	}
	res.Skipped += len(foreign)
	return res
}

// pickOwned selects an unclaimed record publishing addr whose comment carries
// tag, preferring one named fqdn. Matching records that are not owned are
// added to foreign, keyed by id.
func pickOwned(records []dns.Record, addr netip.Addr, fqdn, tag string, claimed, foreign map[string]bool) (rec dns.Record, found bool) {
	for _, r := range records {
		if !hasContent(r, addr) || claimed[r.ID] {
			continue
		}
		if !OwnedByComment(r, tag) {
			foreign[r.ID] = true
			continue
		}
		if !found || (r.Name == fqdn && rec.Name != fqdn) {
			rec, found = r, true
		}
	}
	return rec, found
}

// hasContent reports whether rec is an address record publishing addr.
func hasContent(rec dns.Record, addr netip.Addr) bool {
	if rec.Type != dns.TypeA && rec.Type != dns.TypeAAAA {
		return false
	}
	if rec.Content == addr.String() {
		return true
	}
	parsed, err := netip.ParseAddr(rec.Content)
	return err == nil && parsed.Unmap() == addr.Unmap()
}
