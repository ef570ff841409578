package topology

// DefaultSubnetPrefix is used when no sizing policy, or a zero size, is given
const DefaultSubnetPrefix = 24

// Slot identifies the Nth subnet of a kind in a zone, before it has an address.
type Slot struct {
	Zone  AvailabilityZone
	Kind  SubnetKind
	Index int
}

// SizingPolicy maps a slot to the prefix length of the subnet allocated for it
type SizingPolicy interface {
	PrefixLength(Slot) int
}

// FixedSize gives every subnet the same prefix length
type FixedSize int

func (f FixedSize) PrefixLength(Slot) int {
	if f == 0 {
		return DefaultSubnetPrefix
	}
	return int(f)
}

// KindSizes sizes subnets by kind. A zero field falls back to Default, then to DefaultSubnetPrefix.
type KindSizes struct {
	Default int
	Public  int
	Private int
	NAT     int
}

func (k KindSizes) PrefixLength(slot Slot) int {
	var bits int
	switch slot.Kind {
	case SubnetKindPublic:
		bits = k.Public
	case SubnetKindPrivate:
		bits = k.Private
	case SubnetKindNATPublic:
		bits = k.NAT
	}
	if bits == 0 {
		bits = k.Default
	}
	if bits == 0 {
		bits = DefaultSubnetPrefix
	}
	return bits
}

// SizingFunc adapts a plain function to a SizingPolicy
type SizingFunc func(Slot) int

func (f SizingFunc) PrefixLength(slot Slot) int { return f(slot) }
