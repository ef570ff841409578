package cfn

import (
	"fmt"
	"strings"
	"unicode"

	"dario.cat/mergo"
	"github.com/bwagner5/vpcplan/pkg/topology"
	"github.com/lex00/cloudformation-schema-go/intrinsics"
	"github.com/samber/lo"
)

const (
	vpcLogicalID        = "VPC"
	attachmentLogicalID = "AttachGateway"
	networkACLLogicalID = "PublicNetworkAcl"
	anywhere            = "0.0.0.0/0"
)

const DefaultDescription = "Base network infrastructure"

type Options struct {
	// TagPrefix starts every Name tag, e.g. "tropo" gives "tropo-public-subnet-a1"
	TagPrefix string
	// Description defaults to DefaultDescription
	Description string
	// ExportPrefix starts every output export name. Defaults to TagPrefix.
	ExportPrefix string
	// SkipNetworkACL leaves out the allow-all public network ACL
	SkipNetworkACL bool
}

// Synthesizer turns topology plans into templates
type Synthesizer struct {
	opts Options
}

// New fills unset Options fields with their defaults
func New(opts Options) Synthesizer {
	lo.Must0(mergo.Merge(&opts, Options{ExportPrefix: opts.TagPrefix, Description: DefaultDescription}))
	return Synthesizer{opts: opts}
}

// Synthesize builds the template for a plan. Only the plan's shape is used; nothing is validated
// against the CloudFormation resource schema.
func (s Synthesizer) Synthesize(plan *topology.TopologyPlan) (*Template, error) {
	if plan == nil {
		return nil, fmt.Errorf("no topology plan to synthesize")
	}
	t := &Template{
		AWSTemplateFormatVersion: TemplateFormatVersion,
		Description:              s.opts.Description,
		Resources:                map[string]Resource{},
		Outputs:                  map[string]Output{},
	}
	vpcRef := intrinsics.Ref{LogicalName: vpcLogicalID}

	t.Resources[vpcLogicalID] = Resource{
		Type: "AWS::EC2::VPC",
		Properties: map[string]any{
			"CidrBlock":          plan.VPC.String(),
			"EnableDnsSupport":   true,
			"EnableDnsHostnames": true,
			"Tags":               s.tags("vpc"),
		},
	}
	t.Resources[plan.InternetGatewayID] = Resource{
		Type:       "AWS::EC2::InternetGateway",
		Properties: map[string]any{"Tags": s.tags("ig")},
	}
	t.Resources[attachmentLogicalID] = Resource{
		Type: "AWS::EC2::VPCGatewayAttachment",
		Properties: map[string]any{
			"VpcId":             vpcRef,
			"InternetGatewayId": intrinsics.Ref{LogicalName: plan.InternetGatewayID},
		},
	}
	s.addOutput(t, vpcLogicalID, "The VPC")

	for _, subnet := range plan.Subnets {
		t.Resources[subnet.ID] = Resource{
			Type: "AWS::EC2::Subnet",
			Properties: map[string]any{
				"CidrBlock":           subnet.Block.String(),
				"VpcId":               vpcRef,
				"AvailabilityZone":    availabilityZone(subnet.Zone),
				"MapPublicIpOnLaunch": subnet.Kind.IsPublic(),
				"Tags":                s.tags(kebab(subnet.ID)),
			},
		}
		s.addOutput(t, subnet.ID, fmt.Sprintf("The %s subnet %d in %s", subnet.Kind, subnet.Index+1, subnet.Zone))
	}

	for _, natGW := range plan.NatGateways {
		t.Resources[natGW.ElasticIPID] = Resource{
			Type:       "AWS::EC2::EIP",
			DependsOn:  []string{attachmentLogicalID},
			Properties: map[string]any{"Domain": "vpc", "Tags": s.tags(kebab(natGW.ElasticIPID))},
		}
		t.Resources[natGW.ID] = Resource{
			Type: "AWS::EC2::NatGateway",
			Properties: map[string]any{
				"AllocationId": intrinsics.GetAtt{LogicalName: natGW.ElasticIPID, Attribute: "AllocationId"},
				"SubnetId":     intrinsics.Ref{LogicalName: natGW.SubnetID},
				"Tags":         s.tags(kebab(natGW.ID)),
			},
		}
	}

	for _, rt := range plan.RouteTables {
		t.Resources[rt.ID] = Resource{
			Type: "AWS::EC2::RouteTable",
			Properties: map[string]any{
				"VpcId": vpcRef,
				"Tags":  s.tags(kebab(rt.ID)),
			},
		}
		switch rt.Default.Kind {
		case topology.RouteTargetInternetGateway:
			t.Resources[rt.ID+"DefaultRoute"] = Resource{
				Type:      "AWS::EC2::Route",
				DependsOn: []string{attachmentLogicalID},
				Properties: map[string]any{
					"RouteTableId":         intrinsics.Ref{LogicalName: rt.ID},
					"DestinationCidrBlock": anywhere,
					"GatewayId":            intrinsics.Ref{LogicalName: plan.InternetGatewayID},
				},
			}
		case topology.RouteTargetNatGateway:
			t.Resources[rt.ID+"DefaultRoute"] = Resource{
				Type: "AWS::EC2::Route",
				Properties: map[string]any{
					"RouteTableId":         intrinsics.Ref{LogicalName: rt.ID},
					"DestinationCidrBlock": anywhere,
					"NatGatewayId":         intrinsics.Ref{LogicalName: rt.Default.NatGatewayID},
				},
			}
		}
		for _, subnetID := range rt.SubnetIDs {
			t.Resources[subnetID+"RouteTableAssociation"] = Resource{
				Type: "AWS::EC2::SubnetRouteTableAssociation",
				Properties: map[string]any{
					"SubnetId":     intrinsics.Ref{LogicalName: subnetID},
					"RouteTableId": intrinsics.Ref{LogicalName: rt.ID},
				},
			}
		}
	}

	publicSubnets := lo.Filter(plan.Subnets, func(subnet topology.SubnetPlan, _ int) bool { return subnet.Kind.IsPublic() })
	if !s.opts.SkipNetworkACL && len(publicSubnets) > 0 {
		s.addNetworkACL(t, publicSubnets)
	}
	return t, nil
}

func (s Synthesizer) addNetworkACL(t *Template, publicSubnets []topology.SubnetPlan) {
	t.Resources[networkACLLogicalID] = Resource{
		Type: "AWS::EC2::NetworkAcl",
		Properties: map[string]any{
			"VpcId": intrinsics.Ref{LogicalName: vpcLogicalID},
			"Tags":  s.tags("acl"),
		},
	}
	for _, egress := range []bool{false, true} {
		t.Resources[networkACLLogicalID+lo.Ternary(egress, "OutboundEntry", "InboundEntry")] = Resource{
			Type: "AWS::EC2::NetworkAclEntry",
			Properties: map[string]any{
				"NetworkAclId": intrinsics.Ref{LogicalName: networkACLLogicalID},
				"RuleNumber":   100,
				"Protocol":     "-1",
				"Egress":       egress,
				"RuleAction":   "allow",
				"CidrBlock":    anywhere,
			},
		}
	}
	for _, subnet := range publicSubnets {
		t.Resources[subnet.ID+"NetworkAclAssociation"] = Resource{
			Type: "AWS::EC2::SubnetNetworkAclAssociation",
			Properties: map[string]any{
				"SubnetId":     intrinsics.Ref{LogicalName: subnet.ID},
				"NetworkAclId": intrinsics.Ref{LogicalName: networkACLLogicalID},
			},
		}
	}
}

func (s Synthesizer) addOutput(t *Template, logicalID, description string) {
	name := s.opts.ExportPrefix + logicalID
	t.Outputs[name] = Output{
		Description: description,
		Value:       intrinsics.Ref{LogicalName: logicalID},
		Export:      &Export{Name: name},
	}
}

func (s Synthesizer) tags(name string) []intrinsics.Tag {
	if s.opts.TagPrefix != "" {
		name = s.opts.TagPrefix + "-" + name
	}
	return []intrinsics.Tag{{Key: "Name", Value: name}}
}

// availabilityZone renders single-letter zones relative to the stack's region
func availabilityZone(zone topology.AvailabilityZone) any {
	if len(zone) == 1 && unicode.IsLetter(rune(zone[0])) {
		return intrinsics.Join{Delimiter: "", Values: []any{intrinsics.Ref{LogicalName: "AWS::Region"}, string(zone)}}
	}
	return string(zone)
}

// kebab converts a logical ID to a tag-friendly name: PublicSubnetUseast1a1 -> public-subnet-useast1a1
func kebab(id string) string {
	var sb strings.Builder
	runes := []rune(id)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			sb.WriteRune('-')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
