package network_test

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/samber/lo"
)

// fakeEC2 keeps VPC resources in memory. NAT Gateways become available and deleted immediately
// unless natPending is set.
type fakeEC2 struct {
	mu     sync.Mutex
	nextID int
	calls  map[string]int
	// failOnce makes the named operation fail the next time it is called
	failOnce map[string]error
	// natPending keeps new NAT Gateways pending until it is cleared
	natPending bool

	zones       []ec2types.AvailabilityZone
	vpcs        []*ec2types.Vpc
	subnets     []*ec2types.Subnet
	igws        []*ec2types.InternetGateway
	natGateways []*ec2types.NatGateway
	addresses   []*ec2types.Address
	routeTables []*ec2types.RouteTable
}

func newFakeEC2() *fakeEC2 {
	return &fakeEC2{
		calls:    map[string]int{},
		failOnce: map[string]error{},
		zones: []ec2types.AvailabilityZone{
			{ZoneName: aws.String("us-east-1a"), ZoneId: aws.String("use1-az1"), RegionName: aws.String("us-east-1"), ZoneType: aws.String("availability-zone")},
			{ZoneName: aws.String("us-east-1b"), ZoneId: aws.String("use1-az2"), RegionName: aws.String("us-east-1"), ZoneType: aws.String("availability-zone")},
			{ZoneName: aws.String("us-east-1-bos-1a"), ZoneId: aws.String("use1-bos1-az1"), RegionName: aws.String("us-east-1"), ZoneType: aws.String("local-zone")},
			{ZoneName: aws.String("us-east-1c"), ZoneId: aws.String("use1-az3"), RegionName: aws.String("us-east-1"), ZoneType: aws.String("availability-zone")},
		},
	}
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func (f *fakeEC2) call(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if err, ok := f.failOnce[op]; ok {
		delete(f.failOnce, op)
		return err
	}
	return nil
}

func (f *fakeEC2) id(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("%s-%04d", prefix, f.nextID)
}

func (f *fakeEC2) totalCalls() int {
	return lo.Sum(lo.Values(f.calls))
}

func specTags(specs []ec2types.TagSpecification) []ec2types.Tag {
	return lo.FlatMap(specs, func(spec ec2types.TagSpecification, _ int) []ec2types.Tag { return spec.Tags })
}

// matches applies EC2 filter semantics: filters are AND'd, values within a filter are OR'd
func matches(filters []ec2types.Filter, tags []ec2types.Tag, attrs map[string]string) bool {
	tagMap := lo.SliceToMap(tags, func(t ec2types.Tag) (string, string) { return lo.FromPtr(t.Key), lo.FromPtr(t.Value) })
	for _, filter := range filters {
		name := lo.FromPtr(filter.Name)
		switch {
		case name == "tag-key":
			if !lo.SomeBy(filter.Values, func(k string) bool { _, ok := tagMap[k]; return ok }) {
				return false
			}
		case strings.HasPrefix(name, "tag:"):
			v, ok := tagMap[strings.TrimPrefix(name, "tag:")]
			if !ok || !slices.Contains(filter.Values, v) {
				return false
			}
		default:
			v, ok := attrs[name]
			if !ok || !slices.Contains(filter.Values, v) {
				return false
			}
		}
	}
	return true
}

func (f *fakeEC2) DescribeAvailabilityZones(_ context.Context, in *ec2.DescribeAvailabilityZonesInput, _ ...func(*ec2.Options)) (*ec2.DescribeAvailabilityZonesOutput, error) {
	if err := f.call("DescribeAvailabilityZones"); err != nil {
		return nil, err
	}
	return &ec2.DescribeAvailabilityZonesOutput{
		AvailabilityZones: lo.Filter(f.zones, func(az ec2types.AvailabilityZone, _ int) bool {
			return matches(in.Filters, nil, map[string]string{
				"region-name": lo.FromPtr(az.RegionName),
				"zone-name":   lo.FromPtr(az.ZoneName),
				"zone-id":     lo.FromPtr(az.ZoneId),
				"state":       "available",
			})
		}),
	}, nil
}

func (f *fakeEC2) DescribeVpcs(_ context.Context, in *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	if err := f.call("DescribeVpcs"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeVpcsOutput{}
	for _, vpc := range f.vpcs {
		if matches(in.Filters, vpc.Tags, map[string]string{"vpc-id": *vpc.VpcId, "cidr": *vpc.CidrBlock}) {
			out.Vpcs = append(out.Vpcs, *vpc)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateVpc(_ context.Context, in *ec2.CreateVpcInput, _ ...func(*ec2.Options)) (*ec2.CreateVpcOutput, error) {
	if err := f.call("CreateVpc"); err != nil {
		return nil, err
	}
	vpc := &ec2types.Vpc{
		VpcId:     aws.String(f.id("vpc")),
		CidrBlock: in.CidrBlock,
		State:     ec2types.VpcStateAvailable,
		Tags:      specTags(in.TagSpecifications),
	}
	f.vpcs = append(f.vpcs, vpc)
	f.routeTables = append(f.routeTables, &ec2types.RouteTable{
		RouteTableId: aws.String(f.id("rtb")),
		VpcId:        vpc.VpcId,
		Associations: []ec2types.RouteTableAssociation{{Main: aws.Bool(true), RouteTableAssociationId: aws.String(f.id("rtbassoc"))}},
	})
	return &ec2.CreateVpcOutput{Vpc: lo.ToPtr(*vpc)}, nil
}

func (f *fakeEC2) ModifyVpcAttribute(_ context.Context, in *ec2.ModifyVpcAttributeInput, _ ...func(*ec2.Options)) (*ec2.ModifyVpcAttributeOutput, error) {
	if err := f.call("ModifyVpcAttribute"); err != nil {
		return nil, err
	}
	if _, ok := f.vpc(*in.VpcId); !ok {
		return nil, apiError("InvalidVpcID.NotFound")
	}
	return &ec2.ModifyVpcAttributeOutput{}, nil
}

func (f *fakeEC2) vpc(id string) (*ec2types.Vpc, bool) {
	return lo.Find(f.vpcs, func(v *ec2types.Vpc) bool { return *v.VpcId == id })
}

func (f *fakeEC2) DeleteVpc(_ context.Context, in *ec2.DeleteVpcInput, _ ...func(*ec2.Options)) (*ec2.DeleteVpcOutput, error) {
	if err := f.call("DeleteVpc"); err != nil {
		return nil, err
	}
	id := *in.VpcId
	if _, ok := f.vpc(id); !ok {
		return nil, apiError("InvalidVpcID.NotFound")
	}
	inUse := lo.SomeBy(f.subnets, func(s *ec2types.Subnet) bool { return *s.VpcId == id }) ||
		lo.SomeBy(f.igws, func(igw *ec2types.InternetGateway) bool {
			return lo.SomeBy(igw.Attachments, func(a ec2types.InternetGatewayAttachment) bool { return *a.VpcId == id })
		}) ||
		lo.SomeBy(f.routeTables, func(rt *ec2types.RouteTable) bool { return *rt.VpcId == id && !isMain(rt) })
	if inUse {
		return nil, apiError("DependencyViolation")
	}
	f.vpcs = lo.Reject(f.vpcs, func(v *ec2types.Vpc, _ int) bool { return *v.VpcId == id })
	f.routeTables = lo.Reject(f.routeTables, func(rt *ec2types.RouteTable, _ int) bool { return *rt.VpcId == id })
	return &ec2.DeleteVpcOutput{}, nil
}

func (f *fakeEC2) DescribeSubnets(_ context.Context, in *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	if err := f.call("DescribeSubnets"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeSubnetsOutput{}
	for _, subnet := range f.subnets {
		if matches(in.Filters, subnet.Tags, map[string]string{"subnet-id": *subnet.SubnetId, "vpc-id": *subnet.VpcId}) {
			out.Subnets = append(out.Subnets, *subnet)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateSubnet(_ context.Context, in *ec2.CreateSubnetInput, _ ...func(*ec2.Options)) (*ec2.CreateSubnetOutput, error) {
	if err := f.call("CreateSubnet"); err != nil {
		return nil, err
	}
	if _, ok := f.vpc(*in.VpcId); !ok {
		return nil, apiError("InvalidVpcID.NotFound")
	}
	subnet := &ec2types.Subnet{
		SubnetId:            aws.String(f.id("subnet")),
		VpcId:               in.VpcId,
		CidrBlock:           in.CidrBlock,
		AvailabilityZone:    in.AvailabilityZone,
		MapPublicIpOnLaunch: aws.Bool(false),
		Tags:                specTags(in.TagSpecifications),
	}
	f.subnets = append(f.subnets, subnet)
	return &ec2.CreateSubnetOutput{Subnet: lo.ToPtr(*subnet)}, nil
}

func (f *fakeEC2) subnet(id string) (*ec2types.Subnet, bool) {
	return lo.Find(f.subnets, func(s *ec2types.Subnet) bool { return *s.SubnetId == id })
}

func (f *fakeEC2) ModifySubnetAttribute(_ context.Context, in *ec2.ModifySubnetAttributeInput, _ ...func(*ec2.Options)) (*ec2.ModifySubnetAttributeOutput, error) {
	if err := f.call("ModifySubnetAttribute"); err != nil {
		return nil, err
	}
	subnet, ok := f.subnet(*in.SubnetId)
	if !ok {
		return nil, apiError("InvalidSubnetID.NotFound")
	}
	if in.MapPublicIpOnLaunch != nil {
		subnet.MapPublicIpOnLaunch = in.MapPublicIpOnLaunch.Value
	}
	return &ec2.ModifySubnetAttributeOutput{}, nil
}

func (f *fakeEC2) DeleteSubnet(_ context.Context, in *ec2.DeleteSubnetInput, _ ...func(*ec2.Options)) (*ec2.DeleteSubnetOutput, error) {
	if err := f.call("DeleteSubnet"); err != nil {
		return nil, err
	}
	id := *in.SubnetId
	if _, ok := f.subnet(id); !ok {
		return nil, apiError("InvalidSubnetID.NotFound")
	}
	inUse := lo.SomeBy(f.natGateways, func(n *ec2types.NatGateway) bool {
		return *n.SubnetId == id && n.State != ec2types.NatGatewayStateDeleted
	}) || lo.SomeBy(f.routeTables, func(rt *ec2types.RouteTable) bool {
		return lo.SomeBy(rt.Associations, func(a ec2types.RouteTableAssociation) bool { return lo.FromPtr(a.SubnetId) == id })
	})
	if inUse {
		return nil, apiError("DependencyViolation")
	}
	f.subnets = lo.Reject(f.subnets, func(s *ec2types.Subnet, _ int) bool { return *s.SubnetId == id })
	return &ec2.DeleteSubnetOutput{}, nil
}

func (f *fakeEC2) DescribeInternetGateways(_ context.Context, in *ec2.DescribeInternetGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeInternetGatewaysOutput, error) {
	if err := f.call("DescribeInternetGateways"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeInternetGatewaysOutput{}
	for _, igw := range f.igws {
		attrs := map[string]string{"internet-gateway-id": *igw.InternetGatewayId}
		if len(igw.Attachments) > 0 {
			attrs["attachment.vpc-id"] = *igw.Attachments[0].VpcId
		}
		if matches(in.Filters, igw.Tags, attrs) {
			out.InternetGateways = append(out.InternetGateways, *igw)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateInternetGateway(_ context.Context, in *ec2.CreateInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.CreateInternetGatewayOutput, error) {
	if err := f.call("CreateInternetGateway"); err != nil {
		return nil, err
	}
	igw := &ec2types.InternetGateway{
		InternetGatewayId: aws.String(f.id("igw")),
		Tags:              specTags(in.TagSpecifications),
	}
	f.igws = append(f.igws, igw)
	return &ec2.CreateInternetGatewayOutput{InternetGateway: lo.ToPtr(*igw)}, nil
}

func (f *fakeEC2) igw(id string) (*ec2types.InternetGateway, bool) {
	return lo.Find(f.igws, func(igw *ec2types.InternetGateway) bool { return *igw.InternetGatewayId == id })
}

func (f *fakeEC2) AttachInternetGateway(_ context.Context, in *ec2.AttachInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.AttachInternetGatewayOutput, error) {
	if err := f.call("AttachInternetGateway"); err != nil {
		return nil, err
	}
	igw, ok := f.igw(*in.InternetGatewayId)
	if !ok {
		return nil, apiError("InvalidInternetGatewayID.NotFound")
	}
	if _, ok := f.vpc(*in.VpcId); !ok {
		return nil, apiError("InvalidVpcID.NotFound")
	}
	igw.Attachments = append(igw.Attachments, ec2types.InternetGatewayAttachment{VpcId: in.VpcId, State: ec2types.AttachmentStatusAttached})
	return &ec2.AttachInternetGatewayOutput{}, nil
}

func (f *fakeEC2) DetachInternetGateway(_ context.Context, in *ec2.DetachInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.DetachInternetGatewayOutput, error) {
	if err := f.call("DetachInternetGateway"); err != nil {
		return nil, err
	}
	igw, ok := f.igw(*in.InternetGatewayId)
	if !ok {
		return nil, apiError("InvalidInternetGatewayID.NotFound")
	}
	igw.Attachments = lo.Reject(igw.Attachments, func(a ec2types.InternetGatewayAttachment, _ int) bool { return *a.VpcId == *in.VpcId })
	return &ec2.DetachInternetGatewayOutput{}, nil
}

func (f *fakeEC2) DeleteInternetGateway(_ context.Context, in *ec2.DeleteInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.DeleteInternetGatewayOutput, error) {
	if err := f.call("DeleteInternetGateway"); err != nil {
		return nil, err
	}
	igw, ok := f.igw(*in.InternetGatewayId)
	if !ok {
		return nil, apiError("InvalidInternetGatewayID.NotFound")
	}
	if len(igw.Attachments) > 0 {
		return nil, apiError("DependencyViolation")
	}
	f.igws = lo.Reject(f.igws, func(i *ec2types.InternetGateway, _ int) bool { return i == igw })
	return &ec2.DeleteInternetGatewayOutput{}, nil
}

func (f *fakeEC2) DescribeNatGateways(_ context.Context, in *ec2.DescribeNatGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
	if err := f.call("DescribeNatGateways"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeNatGatewaysOutput{}
	for _, natGW := range f.natGateways {
		if len(in.NatGatewayIds) > 0 && !slices.Contains(in.NatGatewayIds, *natGW.NatGatewayId) {
			continue
		}
		if !f.natPending && natGW.State == ec2types.NatGatewayStatePending {
			natGW.State = ec2types.NatGatewayStateAvailable
		}
		attrs := map[string]string{"nat-gateway-id": *natGW.NatGatewayId, "vpc-id": *natGW.VpcId, "state": string(natGW.State)}
		if matches(in.Filter, natGW.Tags, attrs) {
			out.NatGateways = append(out.NatGateways, *natGW)
		}
	}
	if len(in.NatGatewayIds) > 0 && len(out.NatGateways) == 0 {
		return nil, apiError("NatGatewayNotFound")
	}
	return out, nil
}

func (f *fakeEC2) CreateNatGateway(_ context.Context, in *ec2.CreateNatGatewayInput, _ ...func(*ec2.Options)) (*ec2.CreateNatGatewayOutput, error) {
	if err := f.call("CreateNatGateway"); err != nil {
		return nil, err
	}
	subnet, ok := f.subnet(lo.FromPtr(in.SubnetId))
	if !ok {
		return nil, apiError("InvalidSubnetID.NotFound")
	}
	if !lo.ContainsBy(f.addresses, func(a *ec2types.Address) bool { return *a.AllocationId == *in.AllocationId }) {
		return nil, apiError("InvalidAllocationID.NotFound")
	}
	if lo.ContainsBy(f.natGateways, func(n *ec2types.NatGateway) bool {
		return n.State != ec2types.NatGatewayStateDeleted && *n.NatGatewayAddresses[0].AllocationId == *in.AllocationId
	}) {
		return nil, apiError("Resource.AlreadyAssociated")
	}
	natGW := &ec2types.NatGateway{
		NatGatewayId:        aws.String(f.id("nat")),
		SubnetId:            in.SubnetId,
		VpcId:               subnet.VpcId,
		State:               lo.Ternary(f.natPending, ec2types.NatGatewayStatePending, ec2types.NatGatewayStateAvailable),
		NatGatewayAddresses: []ec2types.NatGatewayAddress{{AllocationId: in.AllocationId}},
		Tags:                specTags(in.TagSpecifications),
	}
	f.natGateways = append(f.natGateways, natGW)
	created := *natGW
	created.State = ec2types.NatGatewayStatePending
	return &ec2.CreateNatGatewayOutput{NatGateway: &created}, nil
}

func (f *fakeEC2) DeleteNatGateway(_ context.Context, in *ec2.DeleteNatGatewayInput, _ ...func(*ec2.Options)) (*ec2.DeleteNatGatewayOutput, error) {
	if err := f.call("DeleteNatGateway"); err != nil {
		return nil, err
	}
	natGW, ok := lo.Find(f.natGateways, func(n *ec2types.NatGateway) bool { return *n.NatGatewayId == *in.NatGatewayId })
	if !ok {
		return nil, apiError("NatGatewayNotFound")
	}
	natGW.State = ec2types.NatGatewayStateDeleted
	return &ec2.DeleteNatGatewayOutput{NatGatewayId: in.NatGatewayId}, nil
}

func (f *fakeEC2) AllocateAddress(_ context.Context, in *ec2.AllocateAddressInput, _ ...func(*ec2.Options)) (*ec2.AllocateAddressOutput, error) {
	if err := f.call("AllocateAddress"); err != nil {
		return nil, err
	}
	addr := &ec2types.Address{
		AllocationId: aws.String(f.id("eipalloc")),
		PublicIp:     aws.String(fmt.Sprintf("198.51.100.%d", len(f.addresses)+1)),
		Domain:       in.Domain,
		Tags:         specTags(in.TagSpecifications),
	}
	f.addresses = append(f.addresses, addr)
	return &ec2.AllocateAddressOutput{AllocationId: addr.AllocationId, PublicIp: addr.PublicIp}, nil
}

func (f *fakeEC2) ReleaseAddress(_ context.Context, in *ec2.ReleaseAddressInput, _ ...func(*ec2.Options)) (*ec2.ReleaseAddressOutput, error) {
	if err := f.call("ReleaseAddress"); err != nil {
		return nil, err
	}
	id := *in.AllocationId
	if !lo.ContainsBy(f.addresses, func(a *ec2types.Address) bool { return *a.AllocationId == id }) {
		return nil, apiError("InvalidAllocationID.NotFound")
	}
	inUse := lo.SomeBy(f.natGateways, func(n *ec2types.NatGateway) bool {
		return n.State != ec2types.NatGatewayStateDeleted && *n.NatGatewayAddresses[0].AllocationId == id
	})
	if inUse {
		return nil, apiError("InvalidIPAddress.InUse")
	}
	f.addresses = lo.Reject(f.addresses, func(a *ec2types.Address, _ int) bool { return *a.AllocationId == id })
	return &ec2.ReleaseAddressOutput{}, nil
}

func (f *fakeEC2) DescribeAddresses(_ context.Context, in *ec2.DescribeAddressesInput, _ ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error) {
	if err := f.call("DescribeAddresses"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeAddressesOutput{}
	for _, addr := range f.addresses {
		if matches(in.Filters, addr.Tags, map[string]string{"allocation-id": *addr.AllocationId}) {
			out.Addresses = append(out.Addresses, *addr)
		}
	}
	return out, nil
}

func isMain(rt *ec2types.RouteTable) bool {
	return lo.ContainsBy(rt.Associations, func(a ec2types.RouteTableAssociation) bool { return lo.FromPtr(a.Main) })
}

func (f *fakeEC2) routeTable(id string) (*ec2types.RouteTable, bool) {
	return lo.Find(f.routeTables, func(rt *ec2types.RouteTable) bool { return *rt.RouteTableId == id })
}

func (f *fakeEC2) DescribeRouteTables(_ context.Context, in *ec2.DescribeRouteTablesInput, _ ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	if err := f.call("DescribeRouteTables"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeRouteTablesOutput{}
	for _, rt := range f.routeTables {
		subnetIDs := lo.FilterMap(rt.Associations, func(a ec2types.RouteTableAssociation, _ int) (string, bool) { return lo.FromPtr(a.SubnetId), a.SubnetId != nil })
		if len(subnetIDs) == 0 {
			subnetIDs = []string{""}
		}
		if lo.SomeBy(subnetIDs, func(subnetID string) bool {
			return matches(in.Filters, rt.Tags, map[string]string{"route-table-id": *rt.RouteTableId, "vpc-id": *rt.VpcId, "association.subnet-id": subnetID})
		}) {
			out.RouteTables = append(out.RouteTables, *rt)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateRouteTable(_ context.Context, in *ec2.CreateRouteTableInput, _ ...func(*ec2.Options)) (*ec2.CreateRouteTableOutput, error) {
	if err := f.call("CreateRouteTable"); err != nil {
		return nil, err
	}
	vpc, ok := f.vpc(*in.VpcId)
	if !ok {
		return nil, apiError("InvalidVpcID.NotFound")
	}
	rt := &ec2types.RouteTable{
		RouteTableId: aws.String(f.id("rtb")),
		VpcId:        in.VpcId,
		Routes:       []ec2types.Route{{DestinationCidrBlock: vpc.CidrBlock, GatewayId: aws.String("local")}},
		Tags:         specTags(in.TagSpecifications),
	}
	f.routeTables = append(f.routeTables, rt)
	return &ec2.CreateRouteTableOutput{RouteTable: lo.ToPtr(*rt)}, nil
}

func (f *fakeEC2) DeleteRouteTable(_ context.Context, in *ec2.DeleteRouteTableInput, _ ...func(*ec2.Options)) (*ec2.DeleteRouteTableOutput, error) {
	if err := f.call("DeleteRouteTable"); err != nil {
		return nil, err
	}
	rt, ok := f.routeTable(*in.RouteTableId)
	if !ok {
		return nil, apiError("InvalidRouteTableID.NotFound")
	}
	if len(rt.Associations) > 0 {
		return nil, apiError("DependencyViolation")
	}
	f.routeTables = lo.Reject(f.routeTables, func(r *ec2types.RouteTable, _ int) bool { return r == rt })
	return &ec2.DeleteRouteTableOutput{}, nil
}

func (f *fakeEC2) AssociateRouteTable(_ context.Context, in *ec2.AssociateRouteTableInput, _ ...func(*ec2.Options)) (*ec2.AssociateRouteTableOutput, error) {
	if err := f.call("AssociateRouteTable"); err != nil {
		return nil, err
	}
	rt, ok := f.routeTable(*in.RouteTableId)
	if !ok {
		return nil, apiError("InvalidRouteTableID.NotFound")
	}
	if _, ok := f.subnet(*in.SubnetId); !ok {
		return nil, apiError("InvalidSubnetID.NotFound")
	}
	if _, ok := f.association(*in.SubnetId); ok {
		return nil, apiError("Resource.AlreadyAssociated")
	}
	assocID := aws.String(f.id("rtbassoc"))
	rt.Associations = append(rt.Associations, ec2types.RouteTableAssociation{
		RouteTableAssociationId: assocID,
		RouteTableId:            rt.RouteTableId,
		SubnetId:                in.SubnetId,
		Main:                    aws.Bool(false),
	})
	return &ec2.AssociateRouteTableOutput{AssociationId: assocID}, nil
}

// association finds the route table a subnet is explicitly associated with
func (f *fakeEC2) association(subnetID string) (*ec2types.RouteTable, bool) {
	return lo.Find(f.routeTables, func(rt *ec2types.RouteTable) bool {
		return lo.ContainsBy(rt.Associations, func(a ec2types.RouteTableAssociation) bool { return lo.FromPtr(a.SubnetId) == subnetID })
	})
}

func (f *fakeEC2) ReplaceRouteTableAssociation(_ context.Context, in *ec2.ReplaceRouteTableAssociationInput, _ ...func(*ec2.Options)) (*ec2.ReplaceRouteTableAssociationOutput, error) {
	if err := f.call("ReplaceRouteTableAssociation"); err != nil {
		return nil, err
	}
	target, ok := f.routeTable(*in.RouteTableId)
	if !ok {
		return nil, apiError("InvalidRouteTableID.NotFound")
	}
	for _, rt := range f.routeTables {
		for i, assoc := range rt.Associations {
			if *assoc.RouteTableAssociationId != *in.AssociationId {
				continue
			}
			rt.Associations = slices.Delete(rt.Associations, i, i+1)
			assocID := aws.String(f.id("rtbassoc"))
			target.Associations = append(target.Associations, ec2types.RouteTableAssociation{
				RouteTableAssociationId: assocID,
				RouteTableId:            target.RouteTableId,
				SubnetId:                assoc.SubnetId,
				Main:                    assoc.Main,
			})
			return &ec2.ReplaceRouteTableAssociationOutput{NewAssociationId: assocID}, nil
		}
	}
	return nil, apiError("InvalidAssociationID.NotFound")
}

func (f *fakeEC2) DisassociateRouteTable(_ context.Context, in *ec2.DisassociateRouteTableInput, _ ...func(*ec2.Options)) (*ec2.DisassociateRouteTableOutput, error) {
	if err := f.call("DisassociateRouteTable"); err != nil {
		return nil, err
	}
	for _, rt := range f.routeTables {
		for i, assoc := range rt.Associations {
			if *assoc.RouteTableAssociationId == *in.AssociationId {
				rt.Associations = slices.Delete(rt.Associations, i, i+1)
				return &ec2.DisassociateRouteTableOutput{}, nil
			}
		}
	}
	return nil, apiError("InvalidAssociationID.NotFound")
}

func (f *fakeEC2) CreateRoute(_ context.Context, in *ec2.CreateRouteInput, _ ...func(*ec2.Options)) (*ec2.CreateRouteOutput, error) {
	if err := f.call("CreateRoute"); err != nil {
		return nil, err
	}
	rt, ok := f.routeTable(*in.RouteTableId)
	if !ok {
		return nil, apiError("InvalidRouteTableID.NotFound")
	}
	if lo.ContainsBy(rt.Routes, func(r ec2types.Route) bool { return *r.DestinationCidrBlock == *in.DestinationCidrBlock }) {
		return nil, apiError("RouteAlreadyExists")
	}
	rt.Routes = append(rt.Routes, ec2types.Route{
		DestinationCidrBlock: in.DestinationCidrBlock,
		GatewayId:            in.GatewayId,
		NatGatewayId:         in.NatGatewayId,
	})
	return &ec2.CreateRouteOutput{Return: aws.Bool(true)}, nil
}

func (f *fakeEC2) DeleteRoute(_ context.Context, in *ec2.DeleteRouteInput, _ ...func(*ec2.Options)) (*ec2.DeleteRouteOutput, error) {
	if err := f.call("DeleteRoute"); err != nil {
		return nil, err
	}
	rt, ok := f.routeTable(*in.RouteTableId)
	if !ok {
		return nil, apiError("InvalidRouteTableID.NotFound")
	}
	before := len(rt.Routes)
	rt.Routes = lo.Reject(rt.Routes, func(r ec2types.Route, _ int) bool { return *r.DestinationCidrBlock == *in.DestinationCidrBlock })
	if len(rt.Routes) == before {
		return nil, apiError("InvalidRoute.NotFound")
	}
	return &ec2.DeleteRouteOutput{}, nil
}
