package topology

import (
	"fmt"
	"net/netip"
	"slices"
)

// AddressBlock is a masked IPv4 CIDR prefix
type AddressBlock struct {
	prefix netip.Prefix
}

// ParseAddressBlock parses an IPv4 CIDR. Host bits must be zero, so "10.0.0.1/16" is rejected.
func ParseAddressBlock(s string) (AddressBlock, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return AddressBlock{}, fmt.Errorf("parsing CIDR %q: %w", s, err)
	}
	if !prefix.Addr().Is4() {
		return AddressBlock{}, fmt.Errorf("CIDR %q is not IPv4", s)
	}
	if prefix.Masked() != prefix {
		return AddressBlock{}, fmt.Errorf("CIDR %q has host bits set, did you mean %s?", s, prefix.Masked())
	}
	return AddressBlock{prefix: prefix}, nil
}

// MustParseAddressBlock is ParseAddressBlock for constants and tests
func MustParseAddressBlock(s string) AddressBlock {
	b, err := ParseAddressBlock(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (b AddressBlock) Prefix() netip.Prefix { return b.prefix }
func (b AddressBlock) Bits() int            { return b.prefix.Bits() }
func (b AddressBlock) Addr() netip.Addr     { return b.prefix.Addr() }
func (b AddressBlock) IsValid() bool        { return b.prefix.IsValid() }

// Size is the number of addresses in the block
func (b AddressBlock) Size() uint64 {
	return uint64(1) << (32 - b.prefix.Bits())
}

// Contains reports whether other lies entirely inside b
func (b AddressBlock) Contains(other AddressBlock) bool {
	return b.prefix.Bits() <= other.prefix.Bits() && b.prefix.Contains(other.prefix.Addr())
}

// Overlaps reports whether b and other share any address
func (b AddressBlock) Overlaps(other AddressBlock) bool {
	return b.prefix.Overlaps(other.prefix)
}

func (b AddressBlock) String() string {
	if !b.prefix.IsValid() {
		return ""
	}
	return b.prefix.String()
}

func (b AddressBlock) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *AddressBlock) UnmarshalText(text []byte) error {
	parsed, err := ParseAddressBlock(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// halves splits a block into its lower and upper halves. The block must be shorter than /32.
func (b AddressBlock) halves() (AddressBlock, AddressBlock) {
	bits := b.prefix.Bits() + 1
	lower := netip.PrefixFrom(b.prefix.Addr(), bits)
	a4 := b.prefix.Addr().As4()
	offset := uint32(1) << (32 - bits)
	n := uint32(a4[0])<<24 | uint32(a4[1])<<16 | uint32(a4[2])<<8 | uint32(a4[3])
	n += offset
	upper := netip.PrefixFrom(netip.AddrFrom4([4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}), bits)
	return AddressBlock{prefix: lower}, AddressBlock{prefix: upper}
}

// allocator hands out aligned blocks from a parent block, lowest address first.
// free is kept sorted by address and never holds overlapping blocks.
type allocator struct {
	parent AddressBlock
	free   []AddressBlock
}

func newAllocator(parent AddressBlock) *allocator {
	return &allocator{parent: parent, free: []AddressBlock{parent}}
}

// allocate carves a block of the given prefix length out of the lowest-addressed free block
// that can hold it, splitting larger free blocks buddy-style and returning the upper halves to the list.
func (a *allocator) allocate(bits int) (AddressBlock, bool) {
	if bits < a.parent.Bits() || bits > 32 {
		return AddressBlock{}, false
	}
	for i, block := range a.free {
		if block.Bits() > bits {
			continue
		}
		a.free = slices.Delete(a.free, i, i+1)
		for block.Bits() < bits {
			lower, upper := block.halves()
			a.insert(upper)
			block = lower
		}
		return block, true
	}
	return AddressBlock{}, false
}

func (a *allocator) insert(block AddressBlock) {
	i, _ := slices.BinarySearchFunc(a.free, block, func(x, target AddressBlock) int {
		return x.Addr().Compare(target.Addr())
	})
	a.free = slices.Insert(a.free, i, block)
}

// remaining is the number of unallocated addresses
func (a *allocator) remaining() uint64 {
	var total uint64
	for _, b := range a.free {
		total += b.Size()
	}
	return total
}
