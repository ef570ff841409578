package tagutils

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/samber/lo"
)

const (
	NamespaceTagKey = "Namespace"
	NameTagKey      = "Name"
	CreatedByTagKey = "CreatedBy"
	// PlanIDTagKey records which plan resource (e.g. PublicSubnetA1) an AWS resource was created for
	PlanIDTagKey = "vpcplan/plan-id"
	// NetworkTagKey holds the network name, since Name is unique per resource
	NetworkTagKey   = "vpcplan/network"
	SystemPrefixKey = "vpcplan"
)

// NamespacedTags returns a map of tag key/value pairs in standardized way.
// name is optional to get tags back for a selector
func NamespacedTags(namespace string, name string) map[string]string {
	tags := map[string]string{
		NamespaceTagKey: namespace,
		CreatedByTagKey: SystemPrefixKey,
	}
	if name != "" {
		tags[NameTagKey] = name
	}
	return tags
}

// NetworkTags selects every resource created for one network
func NetworkTags(namespace, name string) map[string]string {
	return map[string]string{
		NamespaceTagKey: namespace,
		NetworkTagKey:   name,
	}
}

// PlanTags are the namespaced tags plus the network name and plan ID of the resource.
// The Name tag becomes <name>-<planID> so resources are recognizable in the console.
func PlanTags(namespace, name, planID string) map[string]string {
	tags := NamespacedTags(namespace, name)
	tags[NetworkTagKey] = name
	if planID != "" {
		tags[PlanIDTagKey] = planID
		tags[NameTagKey] = lo.Ternary(name == "", planID, name+"-"+planID)
	}
	return tags
}

func EC2NamespacedTags(namespace, name string) []ec2types.Tag {
	return MapToEC2Tags(NamespacedTags(namespace, name))
}

func MapToEC2Tags(tags map[string]string) []ec2types.Tag {
	var ec2Tags []ec2types.Tag
	for _, k := range lo.Keys(tags) {
		ec2Tags = append(ec2Tags, ec2types.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return ec2Tags
}

// TagSpecification tags a resource of the given type at creation time
func TagSpecification(resourceType ec2types.ResourceType, tags map[string]string) []ec2types.TagSpecification {
	return []ec2types.TagSpecification{{
		ResourceType: resourceType,
		Tags:         MapToEC2Tags(tags),
	}}
}

func EC2TagsToMap(ec2Tags []ec2types.Tag) map[string]string {
	tags := map[string]string{}
	for _, t := range ec2Tags {
		tags[lo.FromPtr(t.Key)] = lo.FromPtr(t.Value)
	}
	return tags
}
