package subnets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/bwagner5/vpcplan/pkg/selectors"
	"github.com/bwagner5/vpcplan/pkg/topology"
	"github.com/bwagner5/vpcplan/pkg/utils/tagutils"
	"github.com/samber/lo"
)

// KindTagKey records the planned routing role of a subnet
const KindTagKey = "vpcplan/kind"

// Watcher discovers subnets based on selectors
type Watcher struct {
	subnetAPI SDKSubnetsOps
}

// SDKSubnetsOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKSubnetsOps interface {
	ec2.DescribeSubnetsAPIClient
	CreateSubnet(context.Context, *ec2.CreateSubnetInput, ...func(*ec2.Options)) (*ec2.CreateSubnetOutput, error)
	ModifySubnetAttribute(context.Context, *ec2.ModifySubnetAttributeInput, ...func(*ec2.Options)) (*ec2.ModifySubnetAttributeOutput, error)
	DeleteSubnet(context.Context, *ec2.DeleteSubnetInput, ...func(*ec2.Options)) (*ec2.DeleteSubnetOutput, error)
}

// Selector is a struct that represents a subnet selector
type Selector struct {
	Tags  map[string]string
	ID    string
	VPCID string
}

// Subnet represent an AWS Subnet
// This is not the AWS SDK Subnet type, but a wrapper around it so that we can add additional data
type Subnet struct {
	ec2types.Subnet
}

// PlanID is the topology ID the subnet was created for, if any
func (s Subnet) PlanID() string {
	return tagutils.EC2TagsToMap(s.Tags)[tagutils.PlanIDTagKey]
}

// ParseSelectors parses a string of selectors into a slice of Selector structs
func ParseSelectors(selectorStr string) ([]Selector, error) {
	selectors, err := selectors.ParseSelectorsTokens(selectorStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subnet selectors: %w", err)
	}
	subnetSelectors := make([]Selector, 0, len(selectors))
	for _, selector := range selectors {
		subnetSelector := Selector{
			Tags: selector.Tags,
		}
		for k, v := range selector.KeyVals {
			switch k {
			case "id":
				subnetSelector.ID = v
			case "vpc-id":
				subnetSelector.VPCID = v
			default:
				return nil, fmt.Errorf("invalid subnet selector key: %s", k)
			}
		}
		subnetSelectors = append(subnetSelectors, subnetSelector)
	}
	return subnetSelectors, nil
}

// NewWatcher creates a new Subnet Watcher
func NewWatcher(subnetAPI SDKSubnetsOps) Watcher {
	return Watcher{
		subnetAPI: subnetAPI,
	}
}

// Resolve returns a list of subnets that match the provided selectors
// Multiple calls to EC2 may be sent to resolve the selectors
func (w Watcher) Resolve(ctx context.Context, selectors []Selector) ([]Subnet, error) {
	var subnets []Subnet
	for _, filters := range filterSets(selectors) {
		pager := ec2.NewDescribeSubnetsPaginator(w.subnetAPI, &ec2.DescribeSubnetsInput{
			Filters: filters,
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe subnets: %w", err)
			}

			subnets = append(subnets, lo.Map(page.Subnets, func(sdkSubnet ec2types.Subnet, _ int) Subnet {
				return Subnet{sdkSubnet}
			})...)
		}
	}
	return lo.UniqBy(subnets, func(s Subnet) string { return lo.FromPtr(s.SubnetId) }), nil
}

// Create creates one planned subnet in the VPC.
// Public subnets (including the dedicated NAT subnet) map public IPs on launch.
func (w Watcher) Create(ctx context.Context, namespace, name, vpcID string, plan topology.SubnetPlan) (*Subnet, error) {
	tags := tagutils.PlanTags(namespace, name, plan.ID)
	tags[KindTagKey] = string(plan.Kind)
	out, err := w.subnetAPI.CreateSubnet(ctx, &ec2.CreateSubnetInput{
		VpcId:             aws.String(vpcID),
		CidrBlock:         aws.String(plan.Block.String()),
		AvailabilityZone:  aws.String(string(plan.Zone)),
		TagSpecifications: tagutils.TagSpecification(ec2types.ResourceTypeSubnet, tags),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subnet %s (%s in %s): %w", plan.ID, plan.Block, plan.Zone, err)
	}
	subnet := &Subnet{*out.Subnet}
	if plan.Kind.IsPublic() {
		if _, err := w.subnetAPI.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            out.Subnet.SubnetId,
			MapPublicIpOnLaunch: &ec2types.AttributeBooleanValue{Value: aws.Bool(true)},
		}); err != nil {
			return subnet, fmt.Errorf("failed to enable public IPs on subnet %s: %w", plan.ID, err)
		}
		subnet.MapPublicIpOnLaunch = aws.Bool(true)
	}
	return subnet, nil
}

func (w Watcher) Delete(ctx context.Context, subnetID string) error {
	if _, err := w.subnetAPI.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: aws.String(subnetID)}); err != nil {
		return fmt.Errorf("failed to delete subnet %s: %w", subnetID, err)
	}
	return nil
}

// filterSets converts a slice of selectors into a slice of filters for use with the AWS SDK
// Each filter is executed as a separate list call.
// Terms within a Selector are AND'd and between Selectors are OR'd
func filterSets(selectorList []Selector) [][]ec2types.Filter {
	var filterResult [][]ec2types.Filter
	for _, term := range selectorList {
		filters := []ec2types.Filter{}
		if term.ID != "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String("subnet-id"),
				Values: []string{term.ID},
			})
		}
		if term.VPCID != "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String("vpc-id"),
				Values: []string{term.VPCID},
			})
		}
		filters = append(filters, selectors.TagsToEC2Filters(term.Tags)...)
		filterResult = append(filterResult, filters)
	}
	return filterResult
}
