package topology

import (
	"errors"
	"fmt"
	"strings"
)

// Category groups planning errors by who has to act on them.
type Category string

const (
	// CategoryConfiguration is an invalid or contradictory request. The caller must fix the input.
	CategoryConfiguration Category = "ConfigurationError"
	// CategoryCapacity means the address space or zone layout cannot satisfy the request.
	CategoryCapacity Category = "CapacityError"
	// CategoryInternal is a planner bug.
	CategoryInternal Category = "InternalInvariantViolation"
)

var (
	ErrAddressSpaceExhausted     = errors.New("address space exhausted")
	ErrNoPublicSubnetForNat      = errors.New("no public subnet to host a NAT gateway")
	ErrInvalidNatStrategy        = errors.New("invalid NAT strategy")
	ErrDuplicateAvailabilityZone = errors.New("duplicate availability zone")
	ErrEmptyTopologyRequest      = errors.New("empty topology request")
	ErrInvalidRequest            = errors.New("invalid request")
	ErrInternalInvariant         = errors.New("internal invariant violated")
)

var categories = map[error]Category{
	ErrAddressSpaceExhausted:     CategoryCapacity,
	ErrNoPublicSubnetForNat:      CategoryCapacity,
	ErrInvalidNatStrategy:        CategoryConfiguration,
	ErrDuplicateAvailabilityZone: CategoryConfiguration,
	ErrEmptyTopologyRequest:      CategoryConfiguration,
	ErrInvalidRequest:            CategoryConfiguration,
	ErrInternalInvariant:         CategoryInternal,
}

// Error is returned by Plan. Code is one of the Err* sentinels and is matched by errors.Is.
// Zone, Kind and Index locate the offending slot when there is one; Index is -1 otherwise.
type Error struct {
	Code   error
	Zone   AvailabilityZone
	Kind   SubnetKind
	Index  int
	Detail string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code.Error())
	var loc []string
	if e.Zone != "" {
		loc = append(loc, fmt.Sprintf("zone=%s", e.Zone))
	}
	if e.Kind != "" {
		loc = append(loc, fmt.Sprintf("kind=%s", e.Kind))
	}
	if e.Index >= 0 {
		loc = append(loc, fmt.Sprintf("index=%d", e.Index))
	}
	if len(loc) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(loc, ", "))
		sb.WriteString(")")
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Code
}

// Category returns the error's category.
func (e *Error) Category() Category {
	return categories[e.Code]
}

// CategoryOf returns the category of a planning error, or "" when err did not come from the planner.
func CategoryOf(err error) Category {
	var planErr *Error
	if errors.As(err, &planErr) {
		return planErr.Category()
	}
	return ""
}

func newError(code error, format string, args ...any) *Error {
	return &Error{Code: code, Index: -1, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) at(zone AvailabilityZone, kind SubnetKind, index int) *Error {
	e.Zone = zone
	e.Kind = kind
	e.Index = index
	return e
}
