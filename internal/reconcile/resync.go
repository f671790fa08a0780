package reconcile

import (
	"context"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/address"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/config"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/dns"
)

// Resync clears every record this device owns, and every unowned address
// record publishing one of the current addresses, then recreates the records
// the configuration asks for as if every current address were new. Zones
// whose records could not be listed get neither deletes nor creates and are
// reported in Result.Unlisted.
func (e *Engine) Resync(ctx context.Context, cfg *config.Config, current address.Set, snap Snapshot) Result {
	tag := cfg.OwnerTag()
	e.Log.Info("starting full resync", "device", cfg.Device, "addresses", address.Strings(current))

	res := e.deleteMatching(ctx, snap, func(rec dns.Record) (bool, string) {
		if OwnedByComment(rec, tag) {
			return true, "owned"
		}
		if OwnedByName(rec, tag) {
			return true, "owned by name"
		}
		for addr := range current {
			if hasContent(rec, addr) {
				return true, "colliding address"
			}
		}
		return false, ""
	})

	for _, diff := range address.AllAdded(current) {
		res.Merge(e.Apply(ctx, cfg, diff, snap))
	}
	return res
}

// Purge deletes every record this device owns, across all zones.
func (e *Engine) Purge(ctx context.Context, cfg *config.Config, snap Snapshot) Result {
	tag := cfg.OwnerTag()
	return e.deleteMatching(ctx, snap, func(rec dns.Record) (bool, string) {
		if OwnedByComment(rec, tag) || OwnedByName(rec, tag) {
			return true, "owned"
		}
		return false, ""
	})
}

func (e *Engine) deleteMatching(ctx context.Context, snap Snapshot, match func(dns.Record) (bool, string)) Result {
	var res Result
	for _, zone := range snap.Zones {
		records, ok := snap.RecordsFor(zone.Name)
		if !ok {
			e.Log.Info("zone records unknown this cycle, suppressing deletes", "zone", zone.Name)
			res.unlisted(zone.Name)
			continue
		}
		for _, rec := range records {
			ok, reason := match(rec)
			if !ok {
				continue
			}
			err := e.Provider.DeleteRecord(ctx, zone.ID, rec.ID)
			if err != nil {
				e.Log.Error(err, "failed to delete record", "zone", zone.Name, "name", rec.Name, "id", rec.ID, "reason", reason)
			} else {
				e.Log.Info("deleted record", "zone", zone.Name, "name", rec.Name, "type", rec.Type, "content", rec.Content, "reason", reason)
			}
			res.add(Action{Op: OpDelete, Zone: zone.Name, Record: rec, Err: err})
		}
	}
	return res
}
