package routetables

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/bwagner5/vpcplan/pkg/selectors"
	"github.com/bwagner5/vpcplan/pkg/topology"
	"github.com/bwagner5/vpcplan/pkg/utils/ec2utils"
	"github.com/bwagner5/vpcplan/pkg/utils/tagutils"
	"github.com/samber/lo"
)

const defaultDestination = "0.0.0.0/0"

// Watcher discovers route tables based on selectors
type Watcher struct {
	routeTableAPI SDKRouteTablesOps
}

// SDKRouteTablesOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKRouteTablesOps interface {
	ec2.DescribeRouteTablesAPIClient
	CreateRouteTable(context.Context, *ec2.CreateRouteTableInput, ...func(*ec2.Options)) (*ec2.CreateRouteTableOutput, error)
	DeleteRouteTable(context.Context, *ec2.DeleteRouteTableInput, ...func(*ec2.Options)) (*ec2.DeleteRouteTableOutput, error)
	AssociateRouteTable(context.Context, *ec2.AssociateRouteTableInput, ...func(*ec2.Options)) (*ec2.AssociateRouteTableOutput, error)
	DisassociateRouteTable(context.Context, *ec2.DisassociateRouteTableInput, ...func(*ec2.Options)) (*ec2.DisassociateRouteTableOutput, error)
	ReplaceRouteTableAssociation(context.Context, *ec2.ReplaceRouteTableAssociationInput, ...func(*ec2.Options)) (*ec2.ReplaceRouteTableAssociationOutput, error)
	CreateRoute(context.Context, *ec2.CreateRouteInput, ...func(*ec2.Options)) (*ec2.CreateRouteOutput, error)
	DeleteRoute(context.Context, *ec2.DeleteRouteInput, ...func(*ec2.Options)) (*ec2.DeleteRouteOutput, error)
}

// Selector is a struct that represents a routeTable selector
type Selector struct {
	Tags  map[string]string
	ID    string
	VPCID string
}

// RouteTable represent an AWS RouteTable
// This is not the AWS SDK RouteTable type, but a wrapper around it so that we can add additional data
type RouteTable struct {
	ec2types.RouteTable
}

// IsMain reports whether this is the VPC's main route table, which is deleted with the VPC
func (r RouteTable) IsMain() bool {
	return lo.ContainsBy(r.Associations, func(a ec2types.RouteTableAssociation) bool { return lo.FromPtr(a.Main) })
}

// Targets resolves the AWS IDs a route table plan refers to
type Targets struct {
	VPCID             string
	InternetGatewayID string
	// NatGatewayIDs maps NAT Gateway plan IDs to AWS IDs
	NatGatewayIDs map[string]string
	// SubnetIDs maps subnet plan IDs to AWS IDs
	SubnetIDs map[string]string
}

// ParseSelectors parses a string of selectors into a slice of Selector structs
func ParseSelectors(selectorStr string) ([]Selector, error) {
	selectors, err := selectors.ParseSelectorsTokens(selectorStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse routeTable selectors: %w", err)
	}
	routeTableSelectors := make([]Selector, 0, len(selectors))
	for _, selector := range selectors {
		routeTableSelector := Selector{
			Tags: selector.Tags,
		}
		for k, v := range selector.KeyVals {
			switch k {
			case "id":
				routeTableSelector.ID = v
			case "vpc-id":
				routeTableSelector.VPCID = v
			default:
				return nil, fmt.Errorf("invalid routeTable selector key: %s", k)
			}
		}
		routeTableSelectors = append(routeTableSelectors, routeTableSelector)
	}
	return routeTableSelectors, nil
}

// NewWatcher creates a new RouteTable Watcher
func NewWatcher(routeTableAPI SDKRouteTablesOps) Watcher {
	return Watcher{
		routeTableAPI: routeTableAPI,
	}
}

// Resolve returns a list of route tables that match the provided selectors
// Multiple calls to EC2 may be sent to resolve the selectors
func (w Watcher) Resolve(ctx context.Context, selectors []Selector) ([]RouteTable, error) {
	var routeTables []RouteTable
	for _, filters := range filterSets(selectors) {
		pager := ec2.NewDescribeRouteTablesPaginator(w.routeTableAPI, &ec2.DescribeRouteTablesInput{
			Filters: filters,
		})
		for pager.HasMorePages() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe route tables: %w", err)
			}

			routeTables = append(routeTables, lo.Map(page.RouteTables, func(sdkRouteTable ec2types.RouteTable, _ int) RouteTable {
				return RouteTable{sdkRouteTable}
			})...)
		}
	}
	return lo.UniqBy(routeTables, func(rt RouteTable) string { return lo.FromPtr(rt.RouteTableId) }), nil
}

// Create creates one planned route table, its default route and its subnet associations.
// The route table is returned once it exists, even if a later step fails.
func (w Watcher) Create(ctx context.Context, namespace, name string, plan topology.RouteTablePlan, targets Targets) (*RouteTable, error) {
	out, err := w.routeTableAPI.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
		VpcId:             aws.String(targets.VPCID),
		TagSpecifications: tagutils.TagSpecification(ec2types.ResourceTypeRouteTable, tagutils.PlanTags(namespace, name, plan.ID)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create route table %s: %w", plan.ID, err)
	}
	routeTable := &RouteTable{*out.RouteTable}

	route := &ec2.CreateRouteInput{
		RouteTableId:         out.RouteTable.RouteTableId,
		DestinationCidrBlock: aws.String(defaultDestination),
	}
	switch plan.Default.Kind {
	case topology.RouteTargetInternetGateway:
		route.GatewayId = aws.String(targets.InternetGatewayID)
	case topology.RouteTargetNatGateway:
		natGatewayID, ok := targets.NatGatewayIDs[plan.Default.NatGatewayID]
		if !ok {
			return routeTable, fmt.Errorf("route table %s targets NAT Gateway %s which was not created", plan.ID, plan.Default.NatGatewayID)
		}
		route.NatGatewayId = aws.String(natGatewayID)
	default:
		route = nil
	}
	if route != nil {
		if _, err := w.routeTableAPI.CreateRoute(ctx, route); err != nil && !ec2utils.IsAlreadyExistsErr(err) {
			return routeTable, fmt.Errorf("failed to create default route in %s: %w", plan.ID, err)
		}
	}

	for _, subnetPlanID := range plan.SubnetIDs {
		subnetID, ok := targets.SubnetIDs[subnetPlanID]
		if !ok {
			return routeTable, fmt.Errorf("route table %s associates subnet %s which was not created", plan.ID, subnetPlanID)
		}
		associationID, err := w.associate(ctx, lo.FromPtr(out.RouteTable.RouteTableId), subnetID)
		if err != nil {
			return routeTable, fmt.Errorf("failed to associate %s with %s: %w", subnetPlanID, plan.ID, err)
		}
		routeTable.Associations = append(routeTable.Associations, ec2types.RouteTableAssociation{
			RouteTableAssociationId: aws.String(associationID),
			RouteTableId:            out.RouteTable.RouteTableId,
			SubnetId:                aws.String(subnetID),
		})
	}
	return routeTable, nil
}

// associate associates the subnet with the route table. A subnet still associated with another
// route table, e.g. one left behind by an interrupted apply, is moved to this one.
func (w Watcher) associate(ctx context.Context, routeTableID, subnetID string) (string, error) {
	assocOut, err := w.routeTableAPI.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
		RouteTableId: aws.String(routeTableID),
		SubnetId:     aws.String(subnetID),
	})
	if err == nil {
		return lo.FromPtr(assocOut.AssociationId), nil
	}
	if !ec2utils.IsAlreadyAssociatedErr(err) {
		return "", err
	}
	current, err := w.subnetAssociation(ctx, subnetID)
	if err != nil {
		return "", err
	}
	if lo.FromPtr(current.RouteTableId) == routeTableID {
		return lo.FromPtr(current.RouteTableAssociationId), nil
	}
	replaceOut, err := w.routeTableAPI.ReplaceRouteTableAssociation(ctx, &ec2.ReplaceRouteTableAssociationInput{
		AssociationId: current.RouteTableAssociationId,
		RouteTableId:  aws.String(routeTableID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to move %s from %s: %w", subnetID, lo.FromPtr(current.RouteTableId), err)
	}
	return lo.FromPtr(replaceOut.NewAssociationId), nil
}

// subnetAssociation finds the explicit route table association of a subnet
func (w Watcher) subnetAssociation(ctx context.Context, subnetID string) (ec2types.RouteTableAssociation, error) {
	out, err := w.routeTableAPI.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []ec2types.Filter{{Name: aws.String("association.subnet-id"), Values: []string{subnetID}}},
	})
	if err != nil {
		return ec2types.RouteTableAssociation{}, fmt.Errorf("failed to describe route tables of %s: %w", subnetID, err)
	}
	associations := lo.FlatMap(out.RouteTables, func(rt ec2types.RouteTable, _ int) []ec2types.RouteTableAssociation { return rt.Associations })
	association, ok := lo.Find(associations, func(a ec2types.RouteTableAssociation) bool { return lo.FromPtr(a.SubnetId) == subnetID })
	if !ok {
		return ec2types.RouteTableAssociation{}, fmt.Errorf("subnet %s is associated with a route table that could not be found", subnetID)
	}
	return association, nil
}

// Delete removes the default route and subnet associations, then the route table itself
func (w Watcher) Delete(ctx context.Context, routeTable RouteTable) error {
	for _, route := range routeTable.Routes {
		if lo.FromPtr(route.DestinationCidrBlock) != defaultDestination {
			continue
		}
		if _, err := w.routeTableAPI.DeleteRoute(ctx, &ec2.DeleteRouteInput{
			RouteTableId:         routeTable.RouteTableId,
			DestinationCidrBlock: route.DestinationCidrBlock,
		}); err != nil && !ec2utils.IsNotFoundErr(err) {
			return fmt.Errorf("failed to delete route from %s: %w", lo.FromPtr(routeTable.RouteTableId), err)
		}
	}
	for _, association := range routeTable.Associations {
		if lo.FromPtr(association.Main) {
			continue
		}
		if _, err := w.routeTableAPI.DisassociateRouteTable(ctx, &ec2.DisassociateRouteTableInput{AssociationId: association.RouteTableAssociationId}); err != nil && !ec2utils.IsNotFoundErr(err) {
			return fmt.Errorf("failed to disassociate %s: %w", lo.FromPtr(association.RouteTableAssociationId), err)
		}
	}
	if _, err := w.routeTableAPI.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{RouteTableId: routeTable.RouteTableId}); err != nil {
		return fmt.Errorf("failed to delete route table %s: %w", lo.FromPtr(routeTable.RouteTableId), err)
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
				Name:   aws.String("route-table-id"),
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
