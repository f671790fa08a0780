package status

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/agent"
)

// staleAfter is the number of poll intervals without a synced cycle after
// which the agent reports not ready.
const staleAfter = 3

var errNoSync = errors.New("no cycle has reached the provider yet")

// Tracker keeps the latest cycle report and feeds the metrics. It implements
// agent.Recorder.
type Tracker struct {
	Metrics  *Metrics
	Interval time.Duration

	mu         sync.RWMutex
	last       *agent.Report
	lastSynced time.Time
	cycles     int
	now        func() time.Time
}

// NewTracker returns a tracker expecting a cycle every interval.
func NewTracker(m *Metrics, interval time.Duration) *Tracker {
	return &Tracker{Metrics: m, Interval: interval, now: time.Now}
}

// Record stores rep as the latest report.
func (t *Tracker) Record(rep agent.Report) {
	t.mu.Lock()
	t.last = &rep
	t.cycles++
	if rep.Synced {
		t.lastSynced = rep.Time
	}
	t.mu.Unlock()

	if t.Metrics != nil {
		t.Metrics.observe(rep)
	}
}

// Ready fails until a cycle has synced, and again once the last synced
// cycle is older than staleAfter intervals.
func (t *Tracker) Ready(_ *http.Request) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.lastSynced.IsZero() {
		return errNoSync
	}
	if t.Interval > 0 {
		if age := t.now().Sub(t.lastSynced); age > staleAfter*t.Interval {
			return fmt.Errorf("last synced cycle was %s ago", age.Round(time.Second))
		}
	}
	return nil
}

// Snapshot is the JSON view served on /status.
type Snapshot struct {
	Cycles      int       `json:"cycles"`
	LastSynced  time.Time `json:"last_synced,omitempty"`
	Device      string    `json:"device,omitempty"`
	ConfigHash  string    `json:"config_hash,omitempty"`
	Time        time.Time `json:"time,omitempty"`
	Resync      bool      `json:"resync"`
	Pending     bool      `json:"resync_pending"`
	Addresses   []string  `json:"addresses"`
	Differences []string  `json:"differences"`
	Created     int       `json:"created"`
	Deleted     int       `json:"deleted"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Error       string    `json:"error,omitempty"`
}

// Status returns the view of the latest report.
func (t *Tracker) Status() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{Cycles: t.cycles, LastSynced: t.lastSynced, Addresses: []string{}, Differences: []string{}}
	if t.last == nil {
		return s
	}
	rep := t.last
	s.Device = rep.Device
	s.ConfigHash = rep.ConfigHash
	s.Time = rep.Time
	s.Resync = rep.Resync
	s.Pending = rep.ResyncPending
	if rep.Addresses != nil {
		s.Addresses = rep.Addresses
	}
	if rep.Differences != nil {
		s.Differences = rep.Differences
	}
	s.Created = rep.Created
	s.Deleted = rep.Deleted
	s.Failed = rep.Failed
	s.Skipped = rep.Skipped
	if rep.Err != nil {
		s.Error = rep.Err.Error()
	}
	return s
}
