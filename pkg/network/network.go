package network

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/bwagner5/vpcplan/pkg/logging"
	"github.com/bwagner5/vpcplan/pkg/plans"
	"github.com/bwagner5/vpcplan/pkg/providers/azs"
	"github.com/bwagner5/vpcplan/pkg/providers/igws"
	"github.com/bwagner5/vpcplan/pkg/providers/natgws"
	"github.com/bwagner5/vpcplan/pkg/providers/routetables"
	"github.com/bwagner5/vpcplan/pkg/providers/subnets"
	"github.com/bwagner5/vpcplan/pkg/providers/vpcs"
	"github.com/bwagner5/vpcplan/pkg/utils/ec2utils"
	"github.com/bwagner5/vpcplan/pkg/utils/tagutils"
	"github.com/samber/lo"
)

// EC2API is every EC2 operation the watchers need
type EC2API interface {
	vpcs.SDKVPCsOps
	azs.SDKAvailabilityZoneOps
	subnets.SDKSubnetsOps
	igws.SDKIGWOps
	natgws.SDKNATGWOps
	routetables.SDKRouteTablesOps
}

type NetworkI interface {
	Apply(context.Context, bool, plans.NetworkPlan) (plans.NetworkPlan, error)
	DeletionPlan(context.Context, string, string) (plans.DeletionPlan, error)
	Delete(context.Context, plans.DeletionPlan) (plans.DeletionPlan, error)
}

type AWSNetwork struct {
	awsCfg            *aws.Config
	vpcWatcher        vpcs.Watcher
	azWatcher         azs.Watcher
	subnetWatcher     subnets.Watcher
	igwWatcher        igws.Watcher
	natGWWatcher      natgws.Watcher
	routeTableWatcher routetables.Watcher
}

func New(awsCfg *aws.Config) AWSNetwork {
	return NewFromAPI(awsCfg, ec2.NewFromConfig(*awsCfg))
}

// NewFromAPI builds the provisioner on an existing EC2 client
func NewFromAPI(awsCfg *aws.Config, ec2API EC2API) AWSNetwork {
	return AWSNetwork{
		awsCfg:            awsCfg,
		vpcWatcher:        vpcs.NewWatcher(*awsCfg, ec2API),
		azWatcher:         azs.NewWatcher(ec2API),
		subnetWatcher:     subnets.NewWatcher(ec2API),
		igwWatcher:        igws.NewWatcher(ec2API),
		natGWWatcher:      natgws.NewWatcher(ec2API),
		routeTableWatcher: routetables.NewWatcher(ec2API),
	}
}

// WithNatGatewayTimeout bounds the wait for NAT Gateways to become available or deleted
func (n AWSNetwork) WithNatGatewayTimeout(timeout time.Duration) AWSNetwork {
	n.natGWWatcher = n.natGWWatcher.WithWaitTimeout(timeout)
	return n
}

// AvailabilityZones lists up to count zone names in the configured region, or all of them when count is 0
func (n AWSNetwork) AvailabilityZones(ctx context.Context, count int) ([]string, error) {
	logging.FromContext(ctx).Debug("Resolving Availability Zones", "region", n.awsCfg.Region)
	availabilityZones, err := n.azWatcher.Resolve(ctx, []azs.Selector{{Region: n.awsCfg.Region}})
	if err != nil {
		return nil, err
	}
	if len(availabilityZones) == 0 {
		return nil, fmt.Errorf("no availability zones found in region %q", n.awsCfg.Region)
	}
	return azs.Names(availabilityZones, count), nil
}

// Apply creates the AWS resources of a NetworkPlan in dependency order.
// Resources already recorded in the plan's Status are skipped, so a plan returned with an error can be applied again.
// The plan is always returned with every resource created so far.
func (n AWSNetwork) Apply(ctx context.Context, dryRun bool, networkPlan plans.NetworkPlan) (plans.NetworkPlan, error) {
	logger := logging.FromContext(ctx)
	topo := networkPlan.Spec.Topology
	if topo == nil {
		return networkPlan, fmt.Errorf("network plan %s/%s has no topology", networkPlan.Metadata.Namespace, networkPlan.Metadata.Name)
	}
	if dryRun {
		logger.Debug("Dry run, not creating any resources", "topology", topo.String())
		return networkPlan, nil
	}
	logger.Debug("Executing Network Plan")
	ns, name := networkPlan.Metadata.Namespace, networkPlan.Metadata.Name
	status := &networkPlan.Status
	status.Subnets = lo.Ternary(status.Subnets == nil, map[string]string{}, status.Subnets)
	status.RouteTables = lo.Ternary(status.RouteTables == nil, map[string]string{}, status.RouteTables)
	status.NatGateways = lo.Ternary(status.NatGateways == nil, map[string]string{}, status.NatGateways)
	status.ElasticIPs = lo.Ternary(status.ElasticIPs == nil, map[string]string{}, status.ElasticIPs)

	if status.VPC == "" {
		logger.Debug("Creating a VPC", "cidr", topo.VPC.String())
		vpc, err := n.vpcWatcher.Create(ctx, ns, name, "VPC", topo.VPC.String())
		if vpc != nil {
			status.VPC = lo.FromPtr(vpc.VpcId)
		}
		if err != nil {
			return networkPlan, err
		}
	}

	if status.InternetGateway == "" {
		logger.Debug("Creating Internet Gateway")
		igw, err := n.igwWatcher.Create(ctx, ns, name, topo.InternetGatewayID, status.VPC)
		if err != nil {
			// an unattached gateway is not recorded, DeletionPlan finds it by its tags
			return networkPlan, err
		}
		status.InternetGateway = lo.FromPtr(igw.InternetGatewayId)
	}

	logger.Debug("Creating subnets")
	for _, subnetPlan := range topo.Subnets {
		if status.Subnets[subnetPlan.ID] != "" {
			logger.Debug("Subnet already exists, skipping", "plan-id", subnetPlan.ID)
			continue
		}
		subnet, err := n.subnetWatcher.Create(ctx, ns, name, status.VPC, subnetPlan)
		if err != nil {
			return networkPlan, err
		}
		status.Subnets[subnetPlan.ID] = lo.FromPtr(subnet.SubnetId)
		logger.Debug("Created subnet", "plan-id", subnetPlan.ID, "subnet-id", status.Subnets[subnetPlan.ID], "cidr", subnetPlan.Block.String())
	}

	logger.Debug("Creating NAT Gateways")
	for _, natPlan := range topo.NatGateways {
		if id := status.NatGateways[natPlan.ID]; id != "" {
			if !status.PendingNatGateways[natPlan.ID] {
				logger.Debug("NAT Gateway already exists, skipping", "plan-id", natPlan.ID)
				continue
			}
			logger.Debug("Waiting for pending NAT Gateway", "plan-id", natPlan.ID, "nat-gateway-id", id)
			if err := n.natGWWatcher.WaitAvailable(ctx, id); err != nil {
				return networkPlan, err
			}
			delete(status.PendingNatGateways, natPlan.ID)
			continue
		}
		natGW, allocationID, err := n.natGWWatcher.Create(ctx, ns, name, status.Subnets[natPlan.SubnetID], status.ElasticIPs[natPlan.ElasticIPID], natPlan)
		if allocationID != "" {
			status.ElasticIPs[natPlan.ElasticIPID] = allocationID
		}
		if natGW != nil {
			// the allocation is bound to this gateway now, so it must never be created again
			status.NatGateways[natPlan.ID] = lo.FromPtr(natGW.NatGatewayId)
		}
		if err != nil {
			if natGW != nil {
				status.PendingNatGateways = lo.Ternary(status.PendingNatGateways == nil, map[string]bool{}, status.PendingNatGateways)
				status.PendingNatGateways[natPlan.ID] = true
			}
			return networkPlan, err
		}
		logger.Debug("Created NAT Gateway", "plan-id", natPlan.ID, "nat-gateway-id", status.NatGateways[natPlan.ID])
	}

	logger.Debug("Creating route tables")
	targets := routetables.Targets{
		VPCID:             status.VPC,
		InternetGatewayID: status.InternetGateway,
		NatGatewayIDs:     status.NatGateways,
		SubnetIDs:         status.Subnets,
	}
	for _, rtPlan := range topo.RouteTables {
		if status.RouteTables[rtPlan.ID] != "" {
			logger.Debug("Route table already exists, skipping", "plan-id", rtPlan.ID)
			continue
		}
		routeTable, err := n.routeTableWatcher.Create(ctx, ns, name, rtPlan, targets)
		if err != nil {
			// a partially wired route table is not recorded, DeletionPlan finds it by its tags
			return networkPlan, err
		}
		status.RouteTables[rtPlan.ID] = lo.FromPtr(routeTable.RouteTableId)
		logger.Debug("Created route table", "plan-id", rtPlan.ID, "route-table-id", status.RouteTables[rtPlan.ID])
	}
	logger.Debug("Completed Network Plan Execution Successfully")
	return networkPlan, nil
}

// DeletionPlan constructs a plan of all resources that should be deleted.
// The DeletionPlan can be confirmed by the user and then passed to the Delete func for actual deletion.
func (n AWSNetwork) DeletionPlan(ctx context.Context, namespace, name string) (plans.DeletionPlan, error) {
	logger := logging.FromContext(ctx)
	logger.Debug("Constructing a deletion plan")
	deletionPlan := plans.DeletionPlan{
		Metadata: plans.DeletionMetadata{
			Namespace: namespace,
			Name:      name,
		},
		Spec:   plans.DeletionSpec{},
		Status: plans.DeletionStatus{},
	}
	tags := tagutils.NetworkTags(namespace, name)

	logger.Debug("Resolving NAT Gateways")
	natGateways, err := n.natGWWatcher.Resolve(ctx, []natgws.Selector{{Tags: tags}})
	if err != nil {
		return deletionPlan, err
	}
	deletionPlan.Spec.NatGateways = natGateways

	logger.Debug("Resolving Elastic IPs")
	elasticIPs, err := n.natGWWatcher.ResolveAddresses(ctx, tags)
	if err != nil {
		return deletionPlan, err
	}
	deletionPlan.Spec.ElasticIPs = elasticIPs

	logger.Debug("Resolving Internet Gateways")
	internetGateways, err := n.igwWatcher.Resolve(ctx, []igws.Selector{{Tags: tags}})
	if err != nil {
		return deletionPlan, err
	}
	deletionPlan.Spec.InternetGateways = internetGateways

	logger.Debug("Resolving Route Tables")
	routeTables, err := n.routeTableWatcher.Resolve(ctx, []routetables.Selector{{Tags: tags}})
	if err != nil {
		return deletionPlan, err
	}
	deletionPlan.Spec.RouteTables = lo.Reject(routeTables, func(rt routetables.RouteTable, _ int) bool { return rt.IsMain() })

	logger.Debug("Resolving Subnets")
	subnets, err := n.subnetWatcher.Resolve(ctx, []subnets.Selector{{Tags: tags}})
	if err != nil {
		return deletionPlan, err
	}
	deletionPlan.Spec.Subnets = subnets

	logger.Debug("Resolving VPCs")
	vpcs, err := n.vpcWatcher.Resolve(ctx, []vpcs.Selector{{Tags: tags}})
	if err != nil {
		return deletionPlan, err
	}
	deletionPlan.Spec.VPCs = vpcs

	logger.Debug("Deletion Plan construction completed")
	return deletionPlan, nil
}

// Delete executes a DeletionPlan. It is idempotent by keeping track of deletions in the DeletionPlan.Status.
// Resources that no longer exist count as deleted.
func (n AWSNetwork) Delete(ctx context.Context, deletionPlan plans.DeletionPlan) (plans.DeletionPlan, error) {
	logger := logging.FromContext(ctx)
	logger.Debug("Executing Deletion Plan")
	status := &deletionPlan.Status

	logger.Debug("Deleting NAT Gateways...")
	for _, natGW := range deletionPlan.Spec.NatGateways {
		id := lo.FromPtr(natGW.NatGatewayId)
		if err := deleteOnce(ctx, &status.NatGateways, id, "nat-gateway-id", func() error { return n.natGWWatcher.Delete(ctx, id) }); err != nil {
			return deletionPlan, err
		}
	}

	logger.Debug("Releasing Elastic IPs...")
	for _, eip := range deletionPlan.Spec.ElasticIPs {
		id := lo.FromPtr(eip.AllocationId)
		if err := deleteOnce(ctx, &status.ElasticIPs, id, "allocation-id", func() error { return n.natGWWatcher.ReleaseAddress(ctx, id) }); err != nil {
			return deletionPlan, err
		}
	}

	logger.Debug("Deleting Internet Gateways...")
	for _, igw := range deletionPlan.Spec.InternetGateways {
		if err := deleteOnce(ctx, &status.InternetGateways, lo.FromPtr(igw.InternetGatewayId), "internet-gateway-id", func() error { return n.igwWatcher.Delete(ctx, igw) }); err != nil {
			return deletionPlan, err
		}
	}

	logger.Debug("Deleting Route Tables...")
	for _, routeTable := range deletionPlan.Spec.RouteTables {
		if err := deleteOnce(ctx, &status.RouteTables, lo.FromPtr(routeTable.RouteTableId), "route-table-id", func() error { return n.routeTableWatcher.Delete(ctx, routeTable) }); err != nil {
			return deletionPlan, err
		}
	}

	logger.Debug("Deleting Subnets...")
	for _, subnet := range deletionPlan.Spec.Subnets {
		id := lo.FromPtr(subnet.SubnetId)
		if err := deleteOnce(ctx, &status.Subnets, id, "subnet-id", func() error { return n.subnetWatcher.Delete(ctx, id) }); err != nil {
			return deletionPlan, err
		}
	}

	logger.Debug("Deleting VPCs...")
	for _, vpc := range deletionPlan.Spec.VPCs {
		id := lo.FromPtr(vpc.VpcId)
		if err := deleteOnce(ctx, &status.VPCs, id, "vpc-id", func() error { return n.vpcWatcher.Delete(ctx, id) }); err != nil {
			return deletionPlan, err
		}
	}
	logger.Debug("Deletion Plan Completed Successfully")
	return deletionPlan, nil
}

// ForceDelete removes the network's VPC and everything in it, including resources created outside of this tool
func (n AWSNetwork) ForceDelete(ctx context.Context, namespace, name string) error {
	logging.FromContext(ctx).Debug("Force deleting VPC", "namespace", namespace, "name", name)
	return n.vpcWatcher.DeleteByName(ctx, namespace, name)
}

func deleteOnce(ctx context.Context, deleted *map[string]bool, id, idKey string, del func() error) error {
	if (*deleted)[id] {
		logging.FromContext(ctx).Debug("Already deleted, skipping", idKey, id)
		return nil
	}
	if err := del(); err != nil && !ec2utils.IsNotFoundErr(err) {
		return err
	}
	if *deleted == nil {
		*deleted = map[string]bool{}
	}
	logging.FromContext(ctx).Debug("Deleted", idKey, id)
	(*deleted)[id] = true
	return nil
}
