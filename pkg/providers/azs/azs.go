package azs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/bwagner5/vpcplan/pkg/selectors"
	"github.com/samber/lo"
)

// Watcher discovers availability zones based on selectors
type Watcher struct {
	ec2API SDKAvailabilityZoneOps
}

// SDKAvailabilityZoneOps is an interface that combines the necessary EC2 SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKAvailabilityZoneOps interface {
	DescribeAvailabilityZones(context.Context, *ec2.DescribeAvailabilityZonesInput, ...func(*ec2.Options)) (*ec2.DescribeAvailabilityZonesOutput, error)
}

// Selector is a struct that represents an availability zone selector
type Selector struct {
	Name   string
	ID     string
	Region string
}

// AvailabilityZone represent an AWS Availability Zone
// This is not the AWS SDK AvailabilityZone type, but a wrapper around it so that we can add additional data
type AvailabilityZone struct {
	ec2types.AvailabilityZone
}

// ParseSelectors parses a string of selectors into a slice of Selector structs
func ParseSelectors(selectorStr string) ([]Selector, error) {
	selectors, err := selectors.ParseSelectorsTokens(selectorStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse availability zone selectors: %w", err)
	}
	availabilityZoneSelectors := make([]Selector, 0, len(selectors))
	for _, selector := range selectors {
		if len(selector.Tags) != 0 {
			return nil, fmt.Errorf("availability zones cannot be selected by tag")
		}
		availabilityZoneSelector := Selector{}
		for k, v := range selector.KeyVals {
			switch k {
			case "id":
				availabilityZoneSelector.ID = v
			case "name":
				availabilityZoneSelector.Name = v
			case "region":
				availabilityZoneSelector.Region = v
			default:
				return nil, fmt.Errorf("invalid availability zone selector key: %s", k)
			}
		}
		availabilityZoneSelectors = append(availabilityZoneSelectors, availabilityZoneSelector)
	}
	return availabilityZoneSelectors, nil
}

// NewWatcher creates a new Availability Zone Watcher
func NewWatcher(ec2API SDKAvailabilityZoneOps) Watcher {
	return Watcher{
		ec2API: ec2API,
	}
}

// Resolve returns the available zones that match the provided selectors, in the order EC2 lists them.
// Local and wavelength zones are never returned.
func (w Watcher) Resolve(ctx context.Context, selectors []Selector) ([]AvailabilityZone, error) {
	var availabilityZones []AvailabilityZone
	for _, filters := range filterSets(selectors) {
		azsOut, err := w.ec2API.DescribeAvailabilityZones(ctx, &ec2.DescribeAvailabilityZonesInput{
			Filters: filters,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe availability zones: %w", err)
		}
		availabilityZones = append(availabilityZones,
			lo.Map(azsOut.AvailabilityZones, func(az ec2types.AvailabilityZone, _ int) AvailabilityZone { return AvailabilityZone{az} })...)
	}
	availabilityZones = lo.Filter(availabilityZones, func(az AvailabilityZone, _ int) bool {
		return lo.FromPtr(az.ZoneType) == "" || lo.FromPtr(az.ZoneType) == "availability-zone"
	})
	return lo.UniqBy(availabilityZones, func(az AvailabilityZone) string { return lo.FromPtr(az.ZoneName) }), nil
}

// Names returns the first count zone names, or all of them when count is 0
func Names(availabilityZones []AvailabilityZone, count int) []string {
	names := lo.Map(availabilityZones, func(az AvailabilityZone, _ int) string { return lo.FromPtr(az.ZoneName) })
	if count > 0 {
		return lo.Subset(names, 0, uint(count))
	}
	return names
}

// filterSets converts a slice of selectors into a slice of filters for use with the AWS SDK
func filterSets(selectors []Selector) [][]ec2types.Filter {
	var filterResult [][]ec2types.Filter
	idFilter := ec2types.Filter{Name: aws.String("zone-id")}
	nameFilter := ec2types.Filter{Name: aws.String("zone-name")}
	for _, term := range selectors {
		switch {
		case term.ID != "":
			idFilter.Values = append(idFilter.Values, term.ID)
		case term.Name != "":
			nameFilter.Values = append(nameFilter.Values, term.Name)
		case term.Region != "":
			filterResult = append(filterResult, []ec2types.Filter{{
				Name:   aws.String("region-name"),
				Values: []string{term.Region},
			}})
		}
	}
	if len(idFilter.Values) > 0 {
		filterResult = append(filterResult, []ec2types.Filter{idFilter})
	}
	if len(nameFilter.Values) > 0 {
		filterResult = append(filterResult, []ec2types.Filter{nameFilter})
	}
	if len(filterResult) == 0 {
		filterResult = append(filterResult, []ec2types.Filter{{
			Name:   aws.String("state"),
			Values: []string{"available"},
		}})
	}
	return filterResult
}
