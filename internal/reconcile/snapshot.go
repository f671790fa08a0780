package reconcile

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/dns"
)

const fetchConcurrency = 4

// Snapshot is the provider state read once per cycle. Every write of a
// cycle is decided from the same snapshot.
type Snapshot struct {
	Zones []dns.Zone
	// Records maps a normalized zone name to its records. A zone without an
	// entry could not be listed and is treated as having nothing to match.
	Records map[string][]dns.Record
}

func zoneKey(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

// Zone finds the provider zone with the given name.
func (s Snapshot) Zone(name string) (dns.Zone, bool) {
	key := zoneKey(name)
	for _, z := range s.Zones {
		if zoneKey(z.Name) == key {
			return z, true
		}
	}
	return dns.Zone{}, false
}

// RecordsFor returns the records listed for the named zone.
func (s Snapshot) RecordsFor(name string) ([]dns.Record, bool) {
	recs, ok := s.Records[zoneKey(name)]
	return recs, ok
}

// Fetch lists all zones, then the records of every zone concurrently.
// Failing to list zones is an error; failing to list one zone's records only
// leaves that zone out of Records.
func Fetch(ctx context.Context, p dns.Provider, log logr.Logger) (Snapshot, error) {
	zones, err := p.ListZones(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reconcile: listing zones: %w", err)
	}

	snap := Snapshot{Zones: zones, Records: make(map[string][]dns.Record, len(zones))}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(fetchConcurrency)
	for _, zone := range zones {
		g.Go(func() error {
			recs, err := p.ListRecords(ctx, zone.ID)
			if err != nil {
				log.Error(err, "listing records failed, skipping zone this cycle", "zone", zone.Name)
				return nil
			}
			mu.Lock()
			snap.Records[zoneKey(zone.Name)] = recs
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.V(1).Info("fetched provider snapshot", "zones", len(zones), "listed", len(snap.Records))
	return snap, nil
}
