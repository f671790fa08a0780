package reconcile

import (
	"fmt"
	"slices"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/dns"
)

// Op is a write issued against the provider.
type Op string

const (
	OpCreate Op = "create"
	OpDelete Op = "delete"
)

// Action is the outcome of one attempted write.
type Action struct {
	Op     Op
	Zone   string
	Record dns.Record
	Err    error
}

// Result collects every action of a pass. A failed action never prevents
// the remaining ones from being attempted.
type Result struct {
	Actions []Action
	// Skipped counts distinct records matching a removed address that this
	// device does not own.
	Skipped int
	// Unlisted names the zones whose writes were suppressed because their
	// records could not be listed.
	Unlisted []string
}

func (r *Result) add(a Action) {
	r.Actions = append(r.Actions, a)
}

func (r *Result) unlisted(zone string) {
	if !slices.Contains(r.Unlisted, zone) {
		r.Unlisted = append(r.Unlisted, zone)
	}
}

// Merge appends the actions of other to r.
func (r *Result) Merge(other Result) {
	r.Actions = append(r.Actions, other.Actions...)
	r.Skipped += other.Skipped
	for _, z := range other.Unlisted {
		r.unlisted(z)
	}
}

// Complete reports whether every targeted zone could be listed, so that no
// write was suppressed.
func (r Result) Complete() bool {
	return len(r.Unlisted) == 0
}

// Count returns the number of actions of op that succeeded, or failed when
// failed is true.
func (r Result) Count(op Op, failed bool) int {
	n := 0
	for _, a := range r.Actions {
		if a.Op == op && (a.Err != nil) == failed {
			n++
		}
	}
	return n
}

// Created is the number of successful creates.
func (r Result) Created() int { return r.Count(OpCreate, false) }

// Deleted is the number of successful deletes.
func (r Result) Deleted() int { return r.Count(OpDelete, false) }

// Failed is the number of writes that returned an error.
func (r Result) Failed() int {
	return r.Count(OpCreate, true) + r.Count(OpDelete, true)
}

// Err aggregates every failed action, or returns nil.
func (r Result) Err() error {
	var errs []error
	for _, a := range r.Actions {
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("%s %s %s in %s: %w", a.Op, a.Record.Type, a.Record.Name, a.Zone, a.Err))
		}
	}
	return utilerrors.NewAggregate(errs)
}
