package natgws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/bwagner5/vpcplan/pkg/selectors"
	"github.com/bwagner5/vpcplan/pkg/topology"
	"github.com/bwagner5/vpcplan/pkg/utils/ec2utils"
	"github.com/bwagner5/vpcplan/pkg/utils/tagutils"
	"github.com/samber/lo"
)

// DefaultWaitTimeout bounds how long Create and Delete wait on a NAT Gateway state change
const DefaultWaitTimeout = 5 * time.Minute

// Watcher discovers NAT Gateways based on selectors
type Watcher struct {
	ec2API      SDKNATGWOps
	waitTimeout time.Duration
}

// SDKNATGWOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKNATGWOps interface {
	ec2.DescribeNatGatewaysAPIClient
	CreateNatGateway(context.Context, *ec2.CreateNatGatewayInput, ...func(*ec2.Options)) (*ec2.CreateNatGatewayOutput, error)
	DeleteNatGateway(context.Context, *ec2.DeleteNatGatewayInput, ...func(*ec2.Options)) (*ec2.DeleteNatGatewayOutput, error)
	AllocateAddress(context.Context, *ec2.AllocateAddressInput, ...func(*ec2.Options)) (*ec2.AllocateAddressOutput, error)
	ReleaseAddress(context.Context, *ec2.ReleaseAddressInput, ...func(*ec2.Options)) (*ec2.ReleaseAddressOutput, error)
	DescribeAddresses(context.Context, *ec2.DescribeAddressesInput, ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error)
}

// Selector is a struct that represents a NAT Gateway selector
type Selector struct {
	Tags  map[string]string
	ID    string
	VPCID string
	// State defaults to every state except deleted
	State string
}

// NATGateway represent an AWS NAT Gateway
// This is not the AWS SDK NatGateway type, but a wrapper around it so that we can add additional data
type NATGateway struct {
	ec2types.NatGateway
}

// ElasticIP is an allocated address, tagged for the NAT Gateway it was allocated for
type ElasticIP struct {
	ec2types.Address
}

// ParseSelectors parses a string of selectors into a slice of Selector structs
func ParseSelectors(selectorStr string) ([]Selector, error) {
	selectors, err := selectors.ParseSelectorsTokens(selectorStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse NAT Gateway selectors: %w", err)
	}
	natGatewaySelectors := make([]Selector, 0, len(selectors))
	for _, selector := range selectors {
		natGatewaySelector := Selector{
			Tags: selector.Tags,
		}
		for k, v := range selector.KeyVals {
			switch k {
			case "id":
				natGatewaySelector.ID = v
			case "vpc-id":
				natGatewaySelector.VPCID = v
			case "state":
				natGatewaySelector.State = v
			default:
				return nil, fmt.Errorf("invalid NAT Gateway selector key: %s", k)
			}
		}
		natGatewaySelectors = append(natGatewaySelectors, natGatewaySelector)
	}
	return natGatewaySelectors, nil
}

// NewWatcher creates a new NAT Gateway Watcher
func NewWatcher(ec2API SDKNATGWOps) Watcher {
	return Watcher{
		ec2API:      ec2API,
		waitTimeout: DefaultWaitTimeout,
	}
}

// WithWaitTimeout returns a copy of the watcher that waits at most timeout for state changes
func (w Watcher) WithWaitTimeout(timeout time.Duration) Watcher {
	w.waitTimeout = timeout
	return w
}

// Resolve returns a list of NAT Gateways that match the provided selectors
// Multiple calls to EC2 may be sent to resolve the selectors
func (w Watcher) Resolve(ctx context.Context, selectors []Selector) ([]NATGateway, error) {
	var natgws []NATGateway
	for _, filters := range filterSets(selectors) {
		pager := ec2.NewDescribeNatGatewaysPaginator(w.ec2API, &ec2.DescribeNatGatewaysInput{
			Filter: filters,
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe NAT Gateways: %w", err)
			}

			natgws = append(natgws, lo.Map(page.NatGateways, func(sdkNATGateway ec2types.NatGateway, _ int) NATGateway {
				return NATGateway{sdkNATGateway}
			})...)
		}
	}
	return lo.UniqBy(natgws, func(n NATGateway) string { return lo.FromPtr(n.NatGatewayId) }), nil
}

// ResolveAddresses returns the elastic IPs carrying all of the tags
func (w Watcher) ResolveAddresses(ctx context.Context, tags map[string]string) ([]ElasticIP, error) {
	out, err := w.ec2API.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{
		Filters: selectors.TagsToEC2Filters(tags),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe elastic IPs: %w", err)
	}
	return lo.Map(out.Addresses, func(addr ec2types.Address, _ int) ElasticIP { return ElasticIP{addr} }), nil
}

// Create creates the NAT Gateway in subnetID and waits for it to become available.
// The planned elastic IP is allocated unless allocationID names one from an earlier attempt.
// The allocation ID is returned whenever an address exists, even on error,
// and the gateway is returned whenever it was created, even if it never became available.
func (w Watcher) Create(ctx context.Context, namespace, name, subnetID, allocationID string, plan topology.NatGatewayPlan) (*NATGateway, string, error) {
	if allocationID == "" {
		eipOut, err := w.ec2API.AllocateAddress(ctx, &ec2.AllocateAddressInput{
			Domain:            ec2types.DomainTypeVpc,
			TagSpecifications: tagutils.TagSpecification(ec2types.ResourceTypeElasticIp, tagutils.PlanTags(namespace, name, plan.ElasticIPID)),
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to allocate elastic IP %s: %w", plan.ElasticIPID, err)
		}
		allocationID = lo.FromPtr(eipOut.AllocationId)
	}
	natGWOut, err := w.ec2API.CreateNatGateway(ctx, &ec2.CreateNatGatewayInput{
		AllocationId:      aws.String(allocationID),
		SubnetId:          aws.String(subnetID),
		ConnectivityType:  ec2types.ConnectivityTypePublic,
		TagSpecifications: tagutils.TagSpecification(ec2types.ResourceTypeNatgateway, tagutils.PlanTags(namespace, name, plan.ID)),
	})
	if err != nil {
		return nil, allocationID, fmt.Errorf("failed to create NAT Gateway %s: %w", plan.ID, err)
	}
	natGW := &NATGateway{*natGWOut.NatGateway}
	if err := w.WaitAvailable(ctx, lo.FromPtr(natGW.NatGatewayId)); err != nil {
		return natGW, allocationID, fmt.Errorf("NAT Gateway %s: %w", plan.ID, err)
	}
	natGW.State = ec2types.NatGatewayStateAvailable
	return natGW, allocationID, nil
}

// WaitAvailable waits for an existing NAT Gateway to become available
func (w Watcher) WaitAvailable(ctx context.Context, natGatewayID string) error {
	waiter := ec2.NewNatGatewayAvailableWaiter(w.ec2API)
	if err := waiter.Wait(ctx, &ec2.DescribeNatGatewaysInput{NatGatewayIds: []string{natGatewayID}}, w.waitTimeout); err != nil {
		return fmt.Errorf("NAT Gateway %s did not become available: %w", natGatewayID, err)
	}
	return nil
}

// Delete deletes the NAT Gateway and waits until it is gone. Its elastic IP cannot be released before then.
func (w Watcher) Delete(ctx context.Context, natGatewayID string) error {
	if _, err := w.ec2API.DeleteNatGateway(ctx, &ec2.DeleteNatGatewayInput{NatGatewayId: aws.String(natGatewayID)}); err != nil {
		return fmt.Errorf("failed to delete NAT Gateway %s: %w", natGatewayID, err)
	}
	waiter := ec2.NewNatGatewayDeletedWaiter(w.ec2API)
	if err := waiter.Wait(ctx, &ec2.DescribeNatGatewaysInput{NatGatewayIds: []string{natGatewayID}}, w.waitTimeout); err != nil {
		return fmt.Errorf("NAT Gateway %s was not deleted: %w", natGatewayID, err)
	}
	return nil
}

// ReleaseAddress releases an elastic IP. Addresses that are already released are ignored.
func (w Watcher) ReleaseAddress(ctx context.Context, allocationID string) error {
	if _, err := w.ec2API.ReleaseAddress(ctx, &ec2.ReleaseAddressInput{AllocationId: aws.String(allocationID)}); err != nil && !ec2utils.IsNotFoundErr(err) {
		return fmt.Errorf("failed to release elastic IP %s: %w", allocationID, err)
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
				Name:   aws.String("nat-gateway-id"),
				Values: []string{term.ID},
			})
		}
		if term.VPCID != "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String("vpc-id"),
				Values: []string{term.VPCID},
			})
		}
		states := []string{term.State}
		if term.State == "" {
			states = []string{"pending", "available", "deleting", "failed"}
		}
		filters = append(filters, ec2types.Filter{
			Name:   aws.String("state"),
			Values: states,
		})
		filters = append(filters, selectors.TagsToEC2Filters(term.Tags)...)
		filterResult = append(filterResult, filters)
	}
	return filterResult
}
