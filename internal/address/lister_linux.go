//go:build linux

package address

import (
	"net/netip"

	"github.com/vishvananda/netlink"
)

// SystemLister lists interface addresses over netlink.
type SystemLister struct{}

func (SystemLister) InterfaceAddrs() ([]netip.Addr, error) {
	list, err := netlink.AddrList(nil, netlink.FAMILY_ALL)
	if err != nil {
		return nil, err
	}
	out := make([]netip.Addr, 0, len(list))
	for _, a := range list {
		if a.IPNet == nil {
			continue
		}
		if addr, ok := netip.AddrFromSlice(a.IP); ok {
			out = append(out, addr.Unmap())
		}
	}
	return out, nil
}
