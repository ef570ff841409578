package plans

import (
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/bwagner5/vpcplan/pkg/providers/igws"
	"github.com/bwagner5/vpcplan/pkg/providers/natgws"
	"github.com/bwagner5/vpcplan/pkg/providers/routetables"
	"github.com/bwagner5/vpcplan/pkg/providers/subnets"
	"github.com/bwagner5/vpcplan/pkg/providers/vpcs"
	"github.com/bwagner5/vpcplan/pkg/utils/tagutils"
)

type DeletionPlan struct {
	Metadata DeletionMetadata
	Spec     DeletionSpec
	Status   DeletionStatus
}

type DeletionMetadata struct {
	Namespace string
	Name      string
}

type DeletionSpec struct {
	VPCs             []vpcs.VPC
	Subnets          []subnets.Subnet
	InternetGateways []igws.InternetGateway
	RouteTables      []routetables.RouteTable
	NatGateways      []natgws.NATGateway
	ElasticIPs       []natgws.ElasticIP
}

type DeletionStatus struct {
	// Deletion status maps a resource-id to a bool representing that the resource has been deleted.
	VPCs             map[string]bool
	Subnets          map[string]bool
	InternetGateways map[string]bool
	RouteTables      map[string]bool
	NatGateways      map[string]bool
	ElasticIPs       map[string]bool
}

// Empty reports whether nothing was found to delete
func (d DeletionPlan) Empty() bool {
	s := d.Spec
	return len(s.VPCs)+len(s.Subnets)+len(s.InternetGateways)+len(s.RouteTables)+len(s.NatGateways)+len(s.ElasticIPs) == 0
}

func planIDOf(tags []ec2types.Tag) string {
	return tagutils.EC2TagsToMap(tags)[tagutils.PlanIDTagKey]
}
