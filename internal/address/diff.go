package address

import (
	"fmt"
	"net/netip"
)

// Kind tags an address difference.
type Kind int

const (
	Added Kind = iota
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Difference is one address that appeared in or disappeared from the
// observed public address set.
type Difference struct {
	Kind Kind
	Addr netip.Addr
}

func (d Difference) String() string {
	return d.Kind.String() + " " + d.Addr.String()
}

// Diff returns one Added entry per address only in next and one Removed
// entry per address only in prev. Entries are sorted for stable output.
func Diff(prev, next Set) []Difference {
	var out []Difference
	for _, a := range Sorted(next.Difference(prev)) {
		out = append(out, Difference{Kind: Added, Addr: a})
	}
	for _, a := range Sorted(prev.Difference(next)) {
		out = append(out, Difference{Kind: Removed, Addr: a})
	}
	return out
}

// AllAdded treats every member of s as new, as if diffed against an empty set.
func AllAdded(s Set) []Difference {
	return Diff(NewSet(), s)
}
