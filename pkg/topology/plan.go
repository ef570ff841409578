package topology

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// ZoneRequest is the number of public and private subnets wanted in one zone
type ZoneRequest struct {
	Name    AvailabilityZone
	Public  int
	Private int
}

// Request is the full input to Plan.
type Request struct {
	// VPC is the IPv4 CIDR of the VPC, e.g. 10.0.0.0/16
	VPC string
	// Zones are planned in the given order
	Zones       []ZoneRequest
	NatStrategy NatStrategy
	// Sizing picks a prefix length per subnet. nil means FixedSize(DefaultSubnetPrefix).
	Sizing SizingPolicy
	// DedicatedNatSubnet adds one nat-public subnet to every zone that has private subnets
	// and places that zone's NAT gateways in it instead of in a regular public subnet.
	DedicatedNatSubnet bool
}

// MaxSubnets bounds the subnets one request may ask for, far above any VPC subnet quota
const MaxSubnets = 1 << 16

// TotalSubnets is the number of subnets the request will allocate. Negative counts are ignored
// and the sum saturates instead of overflowing.
func (r Request) TotalSubnets() uint64 {
	var total uint64
	for _, z := range r.Zones {
		for _, n := range []int{z.Public, z.Private, lo.Ternary(r.DedicatedNatSubnet && z.Private > 0, 1, 0)} {
			if n <= 0 {
				continue
			}
			if total > math.MaxUint64-uint64(n) {
				return math.MaxUint64
			}
			total += uint64(n)
		}
	}
	return total
}

// Plan resolves a Request into a TopologyPlan. It is a pure function: the same request always
// yields the same plan, and on error no plan is returned. Errors are *Error values.
func Plan(req Request) (*TopologyPlan, error) {
	vpc, slots, err := validate(req)
	if err != nil {
		return nil, err
	}

	plan := &TopologyPlan{
		VPC:               vpc,
		Zones:             lo.Map(req.Zones, func(z ZoneRequest, _ int) AvailabilityZone { return z.Name }),
		NatStrategy:       req.NatStrategy,
		InternetGatewayID: "InternetGateway",
	}

	alloc := newAllocator(vpc)
	for _, slot := range slots {
		bits := sizing(req).PrefixLength(slot)
		block, ok := alloc.allocate(bits)
		if !ok {
			return nil, newError(ErrAddressSpaceExhausted, "no free /%d left in %s (%d addresses unallocated)", bits, vpc, alloc.remaining()).
				at(slot.Zone, slot.Kind, slot.Index)
		}
		plan.Subnets = append(plan.Subnets, SubnetPlan{
			ID:    subnetID(slot),
			Block: block,
			Zone:  slot.Zone,
			Kind:  slot.Kind,
			Index: slot.Index,
		})
	}

	publicIDs := lo.FilterMap(plan.Subnets, func(s SubnetPlan, _ int) (string, bool) { return s.ID, s.Kind.IsPublic() })
	if len(publicIDs) > 0 {
		plan.RouteTables = append(plan.RouteTables, RouteTablePlan{
			ID:        "PublicRouteTable",
			SubnetIDs: publicIDs,
			Default:   RouteTarget{Kind: RouteTargetInternetGateway},
		})
	}

	for _, zone := range plan.Zones {
		private := lo.Filter(plan.SubnetsInZone(zone), func(s SubnetPlan, _ int) bool { return s.Kind == SubnetKindPrivate })
		if len(private) == 0 {
			continue
		}
		hosts := natHosts(plan.SubnetsInZone(zone))
		if len(hosts) == 0 {
			return nil, newError(ErrNoPublicSubnetForNat, "zone has %d private subnets but no public subnet", len(private)).
				at(zone, SubnetKindPrivate, 0)
		}
		token := zoneToken(zone)
		switch plan.NatStrategy {
		case SharedPerAZ:
			natGW := NatGatewayPlan{
				ID:          "NatGateway" + token,
				Zone:        zone,
				SubnetID:    hosts[0].ID,
				ElasticIPID: "NatEip" + token,
			}
			plan.NatGateways = append(plan.NatGateways, natGW)
			plan.RouteTables = append(plan.RouteTables, RouteTablePlan{
				ID:        "PrivateRouteTable" + token,
				Zone:      zone,
				SubnetIDs: lo.Map(private, func(s SubnetPlan, _ int) string { return s.ID }),
				Default:   RouteTarget{Kind: RouteTargetNatGateway, NatGatewayID: natGW.ID},
			})
		case DedicatedPerPrivateSubnet:
			for _, subnet := range private {
				suffix := fmt.Sprintf("%s%d", token, subnet.Index+1)
				natGW := NatGatewayPlan{
					ID:          "NatGateway" + suffix,
					Zone:        zone,
					SubnetID:    hosts[subnet.Index%len(hosts)].ID,
					ElasticIPID: "NatEip" + suffix,
				}
				plan.NatGateways = append(plan.NatGateways, natGW)
				plan.RouteTables = append(plan.RouteTables, RouteTablePlan{
					ID:        "PrivateRouteTable" + suffix,
					Zone:      zone,
					SubnetIDs: []string{subnet.ID},
					Default:   RouteTarget{Kind: RouteTargetNatGateway, NatGatewayID: natGW.ID},
				})
			}
		}
	}

	if err := verify(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func sizing(req Request) SizingPolicy {
	if req.Sizing == nil {
		return FixedSize(DefaultSubnetPrefix)
	}
	return req.Sizing
}

// validate checks everything that can be known before allocation and returns the parsed VPC
// block and the ordered list of slots to allocate.
func validate(req Request) (AddressBlock, []Slot, error) {
	vpc, err := ParseAddressBlock(req.VPC)
	if err != nil {
		return AddressBlock{}, nil, newError(ErrInvalidRequest, "vpc: %s", err)
	}
	if len(req.Zones) == 0 {
		return AddressBlock{}, nil, newError(ErrEmptyTopologyRequest, "no availability zones given")
	}
	seen := map[AvailabilityZone]bool{}
	tokens := map[string]AvailabilityZone{}
	for i, z := range req.Zones {
		if strings.TrimSpace(string(z.Name)) == "" {
			return AddressBlock{}, nil, newError(ErrInvalidRequest, "zone %d has no name", i)
		}
		if seen[z.Name] {
			return AddressBlock{}, nil, newError(ErrDuplicateAvailabilityZone, "zone listed more than once").at(z.Name, "", -1)
		}
		seen[z.Name] = true
		token := zoneToken(z.Name)
		if other, ok := tokens[token]; ok {
			return AddressBlock{}, nil, newError(ErrDuplicateAvailabilityZone, "zones %q and %q both map to identifier %q", other, z.Name, token).at(z.Name, "", -1)
		}
		tokens[token] = z.Name
		if z.Public < 0 || z.Private < 0 {
			return AddressBlock{}, nil, newError(ErrInvalidRequest, "subnet counts must not be negative (public=%d, private=%d)", z.Public, z.Private).at(z.Name, "", -1)
		}
	}
	if !req.NatStrategy.valid() {
		return AddressBlock{}, nil, newError(ErrInvalidNatStrategy, "%q is not one of %s, %s", req.NatStrategy, SharedPerAZ, DedicatedPerPrivateSubnet)
	}
	total := req.TotalSubnets()
	if total == 0 {
		return AddressBlock{}, nil, newError(ErrEmptyTopologyRequest, "zero subnets requested across %d zones", len(req.Zones))
	}
	// every subnet holds at least one address
	if total > vpc.Size() {
		return AddressBlock{}, nil, newError(ErrAddressSpaceExhausted, "%d subnets requested but VPC %s has %d addresses", total, vpc, vpc.Size())
	}
	if total > MaxSubnets {
		return AddressBlock{}, nil, newError(ErrInvalidRequest, "%d subnets requested, at most %d are supported", total, MaxSubnets)
	}

	slots := make([]Slot, 0, total)
	var requested uint64
	addSlot := func(slot Slot) error {
		bits := sizing(req).PrefixLength(slot)
		switch {
		case bits > 32 || bits < 0:
			return newError(ErrInvalidRequest, "prefix length /%d is not a valid IPv4 prefix", bits).at(slot.Zone, slot.Kind, slot.Index)
		case bits < vpc.Bits():
			return newError(ErrAddressSpaceExhausted, "a /%d subnet does not fit in VPC %s", bits, vpc).at(slot.Zone, slot.Kind, slot.Index)
		}
		requested += uint64(1) << (32 - bits)
		if requested > vpc.Size() {
			return newError(ErrAddressSpaceExhausted, "%d subnets need more than the %d addresses of VPC %s", total, vpc.Size(), vpc).at(slot.Zone, slot.Kind, slot.Index)
		}
		slots = append(slots, slot)
		return nil
	}
	for _, z := range req.Zones {
		for i := 0; i < z.Public; i++ {
			if err := addSlot(Slot{Zone: z.Name, Kind: SubnetKindPublic, Index: i}); err != nil {
				return AddressBlock{}, nil, err
			}
		}
		if req.DedicatedNatSubnet && z.Private > 0 {
			if err := addSlot(Slot{Zone: z.Name, Kind: SubnetKindNATPublic, Index: 0}); err != nil {
				return AddressBlock{}, nil, err
			}
		}
		for i := 0; i < z.Private; i++ {
			if err := addSlot(Slot{Zone: z.Name, Kind: SubnetKindPrivate, Index: i}); err != nil {
				return AddressBlock{}, nil, err
			}
		}
	}

	for _, z := range req.Zones {
		if z.Private > 0 && z.Public == 0 && !req.DedicatedNatSubnet {
			return AddressBlock{}, nil, newError(ErrNoPublicSubnetForNat, "zone has %d private subnets but no public subnet", z.Private).at(z.Name, SubnetKindPrivate, 0)
		}
	}
	return vpc, slots, nil
}

// natHosts returns the subnets of a zone that may hold NAT gateways, dedicated NAT subnets first
func natHosts(zoneSubnets []SubnetPlan) []SubnetPlan {
	nat := lo.Filter(zoneSubnets, func(s SubnetPlan, _ int) bool { return s.Kind == SubnetKindNATPublic })
	if len(nat) > 0 {
		return nat
	}
	return lo.Filter(zoneSubnets, func(s SubnetPlan, _ int) bool { return s.Kind == SubnetKindPublic })
}

func subnetID(slot Slot) string {
	token := zoneToken(slot.Zone)
	switch slot.Kind {
	case SubnetKindPublic:
		return fmt.Sprintf("PublicSubnet%s%d", token, slot.Index+1)
	case SubnetKindNATPublic:
		return "NatSubnet" + token
	default:
		return fmt.Sprintf("PrivateSubnet%s%d", token, slot.Index+1)
	}
}

// zoneToken turns a zone name into something usable inside a logical ID: us-east-1a -> Useast1a
func zoneToken(zone AvailabilityZone) string {
	var sb strings.Builder
	for _, r := range string(zone) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		}
	}
	token := sb.String()
	if token == "" {
		return token
	}
	return strings.ToUpper(token[:1]) + token[1:]
}

// verify re-checks the finished plan. Any failure here is a planner bug.
func verify(plan *TopologyPlan) error {
	ids := map[string]bool{plan.InternetGatewayID: true}
	claim := func(id string) error {
		if ids[id] {
			return newError(ErrInternalInvariant, "identifier %q assigned twice", id)
		}
		ids[id] = true
		return nil
	}
	for i, s := range plan.Subnets {
		if err := claim(s.ID); err != nil {
			return err
		}
		if !plan.VPC.Contains(s.Block) {
			return newError(ErrInternalInvariant, "subnet %s %s outside VPC %s", s.ID, s.Block, plan.VPC)
		}
		for _, other := range plan.Subnets[i+1:] {
			if s.Block.Overlaps(other.Block) {
				return newError(ErrInternalInvariant, "subnet %s %s overlaps %s %s", s.ID, s.Block, other.ID, other.Block)
			}
		}
	}
	for _, natGW := range plan.NatGateways {
		if err := claim(natGW.ID); err != nil {
			return err
		}
		if err := claim(natGW.ElasticIPID); err != nil {
			return err
		}
		host, ok := plan.Subnet(natGW.SubnetID)
		if !ok || !host.Kind.IsPublic() || host.Zone != natGW.Zone {
			return newError(ErrInternalInvariant, "NAT gateway %s is not in a public subnet of zone %s", natGW.ID, natGW.Zone)
		}
	}
	for _, rt := range plan.RouteTables {
		if err := claim(rt.ID); err != nil {
			return err
		}
		if len(rt.SubnetIDs) == 0 {
			return newError(ErrInternalInvariant, "route table %s has no subnets", rt.ID)
		}
		for _, id := range rt.SubnetIDs {
			if _, ok := plan.Subnet(id); !ok {
				return newError(ErrInternalInvariant, "route table %s references unknown subnet %s", rt.ID, id)
			}
		}
		if rt.Default.Kind == RouteTargetNatGateway {
			natGW, ok := plan.NatGateway(rt.Default.NatGatewayID)
			if !ok || natGW.Zone != rt.Zone {
				return newError(ErrInternalInvariant, "route table %s routes to NAT gateway %q outside its zone", rt.ID, rt.Default.NatGatewayID)
			}
		}
	}
	return nil
}
