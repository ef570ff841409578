package addrsize

import (
	"fmt"
	"math/bits"
	"regexp"
	"strconv"
	"strings"
)

// PrefixLength is an IPv4 prefix length (0-32) describing a subnet size
type PrefixLength int

type Unit struct {
	suffixes   []string
	multiplier uint64
}

var (
	// Address is a single IPv4 address.
	// Suffix can be excluded or one of the following: addr, addrs, ips (case insensitive).
	Address = Unit{
		suffixes:   []string{"", "addr", "addrs", "ips"},
		multiplier: 1,
	}
	// Kilo is 1000 addresses. Suffix: K (case insensitive).
	Kilo = Unit{
		suffixes:   []string{"K"},
		multiplier: 1e3,
	}
	// Kibi is 1024 addresses. Suffix: Ki (case insensitive).
	Kibi = Unit{
		suffixes:   []string{"Ki"},
		multiplier: 1 << 10,
	}
	// Mega is 1,000,000 addresses. Suffix: M (case insensitive).
	Mega = Unit{
		suffixes:   []string{"M"},
		multiplier: 1e6,
	}
	// Mebi is 1,048,576 addresses. Suffix: Mi (case insensitive).
	Mebi = Unit{
		suffixes:   []string{"Mi"},
		multiplier: 1 << 20,
	}

	units = []Unit{Mebi, Mega, Kibi, Kilo, Address}

	// sizeRegex matches either a prefix ("/24") or a count with an optional unit ("256", "4Ki", "1.5K")
	sizeRegex = regexp.MustCompile(`^(/)?([0-9\.]+)\s*([a-zA-Z]*)$`)
)

// Parse turns a subnet size into the prefix length of the smallest block holding it.
//
// Examples:
//
//	/24  - /24
//	256  - /24
//	100  - /25 (rounded up to 128 addresses)
//	4Ki  - /20
//	1K   - /22 (1000 addresses need 1024)
func Parse(s string) (PrefixLength, error) {
	matches := sizeRegex.FindStringSubmatch(strings.TrimSpace(s))
	if matches == nil {
		return 0, fmt.Errorf("invalid subnet size: %q", s)
	}
	if matches[1] == "/" {
		if matches[3] != "" {
			return 0, fmt.Errorf("invalid subnet size: %q, a prefix takes no unit", s)
		}
		n, err := strconv.Atoi(matches[2])
		if err != nil {
			return 0, fmt.Errorf("invalid subnet size: %q, %w", s, err)
		}
		// a zero PrefixLength means unset to callers, and no subnet spans the whole IPv4 space
		if n < 1 || n > 32 {
			return 0, fmt.Errorf("invalid subnet size: %q, prefix must be between /1 and /32", s)
		}
		return PrefixLength(n), nil
	}
	value, err := strconv.ParseFloat(matches[2], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subnet size: %q, %w", s, err)
	}
	unit, err := FindUnit(matches[3])
	if err != nil {
		return 0, err
	}
	return FromAddresses(uint64(value * float64(unit.multiplier)))
}

// FromAddresses returns the longest prefix whose block holds at least n addresses
func FromAddresses(n uint64) (PrefixLength, error) {
	if n == 0 {
		return 0, fmt.Errorf("invalid subnet size: zero addresses")
	}
	if n > 1<<31 {
		return 0, fmt.Errorf("invalid subnet size: %d addresses exceed the largest subnet (/1)", n)
	}
	// ceil(log2(n))
	hostBits := bits.Len64(n - 1)
	return PrefixLength(32 - hostBits), nil
}

// FindUnit returns the Unit type that corresponds to the given unit string.
// The unit string is case-insensitive; Ki and Mi are checked before K and M.
func FindUnit(unit string) (Unit, error) {
	for _, u := range units {
		for _, suffix := range u.suffixes {
			if strings.EqualFold(unit, suffix) {
				return u, nil
			}
		}
	}
	return Unit{}, fmt.Errorf("invalid unit: %v", unit)
}

// Addresses is the number of addresses in a block of this prefix length
func (p PrefixLength) Addresses() uint64 {
	return uint64(1) << (32 - int(p))
}

func (p PrefixLength) String() string {
	return fmt.Sprintf("/%d", int(p))
}

// Int is a convenience for handing the value to APIs that take plain ints
func (p PrefixLength) Int() int {
	return int(p)
}
