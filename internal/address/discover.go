package address

import (
	"fmt"
	"net/netip"

	"github.com/go-logr/logr"
)

// DiscoveryError reports that local interface addresses could not be listed.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("address: listing interface addresses: %v", e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Lister enumerates every address bound to a local interface.
type Lister interface {
	InterfaceAddrs() ([]netip.Addr, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func() ([]netip.Addr, error)

func (f ListerFunc) InterfaceAddrs() ([]netip.Addr, error) { return f() }

// Discoverer finds the host's current public addresses.
type Discoverer struct {
	Lister Lister
	Log    logr.Logger
}

// NewDiscoverer returns a Discoverer backed by the platform interface lister.
func NewDiscoverer(log logr.Logger) *Discoverer {
	return &Discoverer{Lister: SystemLister{}, Log: log}
}

// Discover returns the public addresses currently bound to local interfaces.
// Enumeration failures are logged and produce an empty set.
func (d *Discoverer) Discover() Set {
	addrs, err := d.Lister.InterfaceAddrs()
	if err != nil {
		d.Log.Error(&DiscoveryError{Err: err}, "address discovery failed, assuming no public addresses")
		return NewSet()
	}
	public := FilterPublic(addrs)
	d.Log.V(1).Info("discovered addresses", "total", len(addrs), "public", Strings(public))
	return public
}
