//go:build !linux

package address

import (
	"net"
	"net/netip"
)

// SystemLister lists interface addresses through the net package.
type SystemLister struct{}

func (SystemLister) InterfaceAddrs() ([]netip.Addr, error) {
	ifAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}
	out := make([]netip.Addr, 0, len(ifAddrs))
	for _, a := range ifAddrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if addr, ok := netip.AddrFromSlice(ipNet.IP); ok {
			out = append(out, addr.Unmap())
		}
	}
	return out, nil
}
