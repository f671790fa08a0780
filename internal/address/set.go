// Package address discovers the public addresses bound to local interfaces
// and computes how that set changes between observations.
package address

import (
	"net/netip"
	"slices"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Set is a deduplicated, unordered set of addresses.
type Set = sets.Set[netip.Addr]

// NewSet returns a set holding addrs.
func NewSet(addrs ...netip.Addr) Set {
	return sets.New(addrs...)
}

// Sorted returns the members of s in ascending order, IPv4 first.
func Sorted(s Set) []netip.Addr {
	out := s.UnsortedList()
	slices.SortFunc(out, func(a, b netip.Addr) int { return a.Compare(b) })
	return out
}

// Strings returns the sorted text forms of the members of s.
func Strings(s Set) []string {
	addrs := Sorted(s)
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}
