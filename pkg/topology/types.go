package topology

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// AvailabilityZone is an opaque zone identifier such as "us-east-1a" or just "a".
// Zones are kept in request order and never sorted.
type AvailabilityZone string

// SubnetKind is the routing role of a subnet
type SubnetKind string

const (
	SubnetKindPublic    SubnetKind = "public"
	SubnetKindPrivate   SubnetKind = "private"
	SubnetKindNATPublic SubnetKind = "nat-public"
)

// IsPublic reports whether subnets of this kind route through the internet gateway
func (k SubnetKind) IsPublic() bool {
	return k == SubnetKindPublic || k == SubnetKindNATPublic
}

// NatStrategy decides how many NAT gateways and private route tables a plan gets.
type NatStrategy string

const (
	// SharedPerAZ creates one NAT gateway and one private route table per zone.
	SharedPerAZ NatStrategy = "SharedPerAZ"
	// DedicatedPerPrivateSubnet creates one NAT gateway and one route table per private subnet.
	DedicatedPerPrivateSubnet NatStrategy = "DedicatedPerPrivateSubnet"
)

// ParseNatStrategy accepts the canonical names, the short forms "shared" and "dedicated",
// and the numeric options "1" and "2".
func ParseNatStrategy(s string) (NatStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shared", "sharedperaz", "shared-per-az", "1":
		return SharedPerAZ, nil
	case "dedicated", "dedicatedperprivatesubnet", "dedicated-per-private-subnet", "2":
		return DedicatedPerPrivateSubnet, nil
	}
	return "", newError(ErrInvalidNatStrategy, "%q is not one of shared, dedicated", s)
}

func (s NatStrategy) valid() bool {
	return s == SharedPerAZ || s == DedicatedPerPrivateSubnet
}

// RouteTargetKind is where a route table's default route points
type RouteTargetKind string

const (
	RouteTargetNone            RouteTargetKind = "none"
	RouteTargetInternetGateway RouteTargetKind = "internet-gateway"
	RouteTargetNatGateway      RouteTargetKind = "nat-gateway"
)

// RouteTarget is the 0.0.0.0/0 route of a route table.
// NatGatewayID is set only for RouteTargetNatGateway.
type RouteTarget struct {
	Kind         RouteTargetKind `json:"kind"`
	NatGatewayID string          `json:"natGatewayID,omitempty"`
}

// SubnetPlan is one allocated subnet.
// Index is the 0-based position among subnets of the same kind in the same zone.
type SubnetPlan struct {
	ID    string           `json:"id"`
	Block AddressBlock     `json:"block"`
	Zone  AvailabilityZone `json:"zone"`
	Kind  SubnetKind       `json:"kind"`
	Index int              `json:"index"`
}

// RouteTablePlan refers to its subnets and NAT gateway by ID.
// Zone is empty for the shared public route table.
type RouteTablePlan struct {
	ID        string           `json:"id"`
	Zone      AvailabilityZone `json:"zone,omitempty"`
	SubnetIDs []string         `json:"subnetIDs"`
	Default   RouteTarget      `json:"default"`
}

// NatGatewayPlan places a NAT gateway in a public subnet with an elastic IP placeholder.
type NatGatewayPlan struct {
	ID          string           `json:"id"`
	Zone        AvailabilityZone `json:"zone"`
	SubnetID    string           `json:"subnetID"`
	ElasticIPID string           `json:"elasticIPID"`
}

// TopologyPlan is the fully resolved network. It is built once by Plan and must be treated as read-only.
type TopologyPlan struct {
	VPC               AddressBlock       `json:"vpc"`
	Zones             []AvailabilityZone `json:"zones"`
	NatStrategy       NatStrategy        `json:"natStrategy"`
	InternetGatewayID string             `json:"internetGatewayID"`
	Subnets           []SubnetPlan       `json:"subnets"`
	RouteTables       []RouteTablePlan   `json:"routeTables"`
	NatGateways       []NatGatewayPlan   `json:"natGateways"`
}

// Subnet looks up a subnet by ID
func (p *TopologyPlan) Subnet(id string) (SubnetPlan, bool) {
	return lo.Find(p.Subnets, func(s SubnetPlan) bool { return s.ID == id })
}

// NatGateway looks up a NAT gateway by ID
func (p *TopologyPlan) NatGateway(id string) (NatGatewayPlan, bool) {
	return lo.Find(p.NatGateways, func(n NatGatewayPlan) bool { return n.ID == id })
}

// RouteTableFor returns the route table a subnet is associated with
func (p *TopologyPlan) RouteTableFor(subnetID string) (RouteTablePlan, bool) {
	return lo.Find(p.RouteTables, func(rt RouteTablePlan) bool { return lo.Contains(rt.SubnetIDs, subnetID) })
}

// SubnetsByKind returns subnets of the given kind in allocation order
func (p *TopologyPlan) SubnetsByKind(kind SubnetKind) []SubnetPlan {
	return lo.Filter(p.Subnets, func(s SubnetPlan, _ int) bool { return s.Kind == kind })
}

// SubnetsInZone returns subnets of the given zone in allocation order
func (p *TopologyPlan) SubnetsInZone(zone AvailabilityZone) []SubnetPlan {
	return lo.Filter(p.Subnets, func(s SubnetPlan, _ int) bool { return s.Zone == zone })
}

func (p *TopologyPlan) String() string {
	return fmt.Sprintf("vpc=%s zones=%d subnets=%d routeTables=%d natGateways=%d",
		p.VPC, len(p.Zones), len(p.Subnets), len(p.RouteTables), len(p.NatGateways))
}
