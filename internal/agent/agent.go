// Package agent runs the poll loop that keeps provider records in sync with
// the host's public addresses.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/address"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/cache"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/config"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-ddns/internal/reconcile"
)

// Discoverer returns the host's current public addresses.
type Discoverer interface {
	Discover() address.Set
}

// ProviderFactory builds the provider client for a configuration generation.
type ProviderFactory func(cfg *config.Config, log logr.Logger) (dns.Provider, error)

// Recorder receives a report after every cycle.
type Recorder interface {
	Record(Report)
}

// Report summarizes one cycle.
type Report struct {
	Time       time.Time
	Device     string
	ConfigHash string
	Resync     bool
	// Synced is set once the provider snapshot was fetched and the
	// reconciliation pass ran, even if individual writes failed.
	Synced bool
	// ResyncPending is set when the pass was partial and the next cycle
	// will resync.
	ResyncPending bool
	Addresses     []string
	Differences   []string
	Created       int
	Deleted       int
	Failed        int
	// CreateFailed and DeleteFailed split Failed by operation.
	CreateFailed int
	DeleteFailed int
	Skipped      int
	Err          error
}

// Agent owns the state carried between cycles: the active configuration
// generation and its provider client.
type Agent struct {
	ConfigPath  string
	Log         logr.Logger
	Discoverer  Discoverer
	NewProvider ProviderFactory
	Recorder    Recorder

	cfg          *config.Config
	syncedHash   string
	provider     dns.Provider
	providerHash string
}

// Run cycles until ctx is cancelled. Only an unreadable configuration at
// startup is returned as an error; later failures are logged and retried on
// the next cycle.
func (a *Agent) Run(ctx context.Context) error {
	if _, err := a.loadConfig(); err != nil {
		return err
	}

	for {
		if _, err := a.Cycle(ctx); err != nil {
			a.Log.Error(err, "cycle failed, retrying next interval")
		}

		timer := time.NewTimer(a.cfg.PollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			a.Log.Info("stopping")
			return nil
		case <-timer.C:
		}
	}
}

// Cycle runs one discovery and reconciliation pass. A changed configuration
// generation, or a missing address cache, triggers a full resync; otherwise
// only the differences since the cached address set are applied. A pass that
// skipped an unlisted zone or had a failed write leaves a resync pending for
// the next cycle, and an unlisted zone also keeps the cache unchanged.
func (a *Agent) Cycle(ctx context.Context) (Report, error) {
	report := Report{Time: time.Now()}
	defer func() {
		if a.Recorder != nil {
			a.Recorder.Record(report)
		}
	}()

	cfg, err := a.loadConfig()
	if err != nil {
		if a.cfg == nil {
			report.Err = err
			return report, err
		}
		a.Log.Error(err, "keeping previous configuration")
		cfg = a.cfg
	}
	hash := cfg.Hash()
	report.Device = cfg.Device
	report.ConfigHash = hash
	log := a.Log.WithValues("device", cfg.Device)

	provider, err := a.providerFor(cfg, hash)
	if err != nil {
		report.Err = err
		return report, err
	}

	current := a.Discoverer.Discover()
	report.Addresses = address.Strings(current)

	snap, err := reconcile.Fetch(ctx, provider, log.WithName("snapshot"))
	if err != nil {
		report.Err = err
		return report, fmt.Errorf("agent: %w", err)
	}

	store := cache.New(cfg.CacheFile, log.WithName("cache"))
	engine := reconcile.New(provider, log.WithName("engine"))

	resync := hash != a.syncedHash || !store.Exists()
	var result reconcile.Result
	if !resync {
		prev, err := store.Load()
		if err != nil {
			log.Error(err, "address cache unreadable, falling back to full resync")
			resync = true
		} else {
			diffs := address.Diff(prev, current)
			for _, d := range diffs {
				report.Differences = append(report.Differences, d.String())
				result.Merge(engine.Apply(ctx, cfg, d, snap))
			}
		}
	}
	if resync {
		if a.syncedHash != "" && hash != a.syncedHash {
			log.Info("configuration changed, resyncing")
		}
		for _, d := range address.AllAdded(current) {
			report.Differences = append(report.Differences, d.String())
		}
		result = engine.Resync(ctx, cfg, current, snap)
	}
	report.Resync = resync
	report.Synced = true

	switch {
	case !result.Complete():
		// The cache stays at the last fully applied set.
		log.Info("zones could not be listed, resync pending", "zones", result.Unlisted)
		a.syncedHash = ""
		report.ResyncPending = true
	case result.Failed() > 0:
		log.Info("record writes failed, resync pending", "failed", result.Failed())
		a.syncedHash = ""
		report.ResyncPending = true
	default:
		a.syncedHash = hash
	}
	if result.Complete() {
		if err := store.Save(current); err != nil {
			log.Error(err, "failed to save address cache")
		}
	}

	report.Created = result.Created()
	report.Deleted = result.Deleted()
	report.Failed = result.Failed()
	report.CreateFailed = result.Count(reconcile.OpCreate, true)
	report.DeleteFailed = result.Count(reconcile.OpDelete, true)
	report.Skipped = result.Skipped
	report.Err = result.Err()

	if len(report.Differences) == 0 {
		log.V(1).Info("no address changes", "addresses", report.Addresses)
	} else {
		log.Info("cycle complete", "resync", resync, "changes", report.Differences,
			"created", report.Created, "deleted", report.Deleted, "failed", report.Failed)
	}
	return report, nil
}

// Purge deletes every record owned by this device and invalidates the
// address cache so the next run starts with a full resync.
func (a *Agent) Purge(ctx context.Context) (reconcile.Result, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return reconcile.Result{}, err
	}
	provider, err := a.providerFor(cfg, cfg.Hash())
	if err != nil {
		return reconcile.Result{}, err
	}
	snap, err := reconcile.Fetch(ctx, provider, a.Log.WithName("snapshot"))
	if err != nil {
		return reconcile.Result{}, fmt.Errorf("agent: %w", err)
	}

	res := reconcile.New(provider, a.Log.WithName("engine")).Purge(ctx, cfg, snap)
	if err := cache.New(cfg.CacheFile, a.Log).Invalidate(); err != nil {
		return res, err
	}
	a.syncedHash = ""
	return res, nil
}

// Config returns the active configuration generation, loading it if no
// cycle has run yet.
func (a *Agent) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	return a.loadConfig()
}

func (a *Agent) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromPath(a.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("agent: loading config: %w", err)
	}
	if err := cfg.ResolveDevice(); err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	a.cfg = cfg
	return cfg, nil
}

func (a *Agent) providerFor(cfg *config.Config, hash string) (dns.Provider, error) {
	if a.provider != nil && a.providerHash == hash {
		return a.provider, nil
	}
	p, err := a.NewProvider(cfg, a.Log.WithName("provider"))
	if err != nil {
		return nil, fmt.Errorf("agent: creating provider: %w", err)
	}
	a.provider, a.providerHash = p, hash
	return p, nil
}
