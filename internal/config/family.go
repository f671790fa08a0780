package config

import (
	"fmt"
	"net/netip"

	"go.yaml.in/yaml/v3"
)

// Family restricts a record template to an address family.
type Family string

const (
	FamilyAll Family = "all"
	FamilyV4  Family = "v4"
	FamilyV6  Family = "v6"
)

// Related reports whether a template with this filter applies to addr.
func (f Family) Related(addr netip.Addr) bool {
	switch f {
	case FamilyV4:
		return addr.Unmap().Is4()
	case FamilyV6:
		return addr.Is6() && !addr.Is4In6()
	default:
		return true
	}
}

func (f *Family) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch Family(s) {
	case "":
		*f = FamilyAll
	case FamilyAll, FamilyV4, FamilyV6:
		*f = Family(s)
	default:
		return fmt.Errorf("config: unknown record type %q (want all, v4 or v6)", s)
	}
	return nil
}
