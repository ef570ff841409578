package plans

import (
	"github.com/bwagner5/vpcplan/pkg/topology"
	"github.com/samber/lo"
)

// NetworkPlan is a planned topology and the AWS resources created for it so far
type NetworkPlan struct {
	Metadata NetworkMetadata `json:"metadata"`
	Spec     NetworkSpec     `json:"spec"`
	Status   NetworkStatus   `json:"status"`
}

type NetworkMetadata struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

type NetworkSpec struct {
	Topology *topology.TopologyPlan `json:"topology"`
	// Region the network is provisioned in. Empty for template-only plans.
	Region string `json:"region,omitempty"`
}

// NetworkStatus maps plan IDs to the AWS IDs of created resources.
// A plan ID present in a map has been created and is not created again when the plan is applied again.
// NAT Gateways that were created but not yet seen available are also listed in PendingNatGateways.
type NetworkStatus struct {
	VPC             string            `json:"vpc,omitempty"`
	InternetGateway string            `json:"internetGateway,omitempty"`
	Subnets         map[string]string `json:"subnets,omitempty"`
	RouteTables     map[string]string `json:"routeTables,omitempty"`
	NatGateways     map[string]string `json:"natGateways,omitempty"`
	ElasticIPs      map[string]string `json:"elasticIPs,omitempty"`

	PendingNatGateways map[string]bool `json:"pendingNatGateways,omitempty"`
}

// NewNetworkPlan wraps a topology in an empty-status plan
func NewNetworkPlan(namespace, name, region string, topo *topology.TopologyPlan) NetworkPlan {
	return NetworkPlan{
		Metadata: NetworkMetadata{Namespace: namespace, Name: name},
		Spec:     NetworkSpec{Topology: topo, Region: region},
		Status: NetworkStatus{
			Subnets:     map[string]string{},
			RouteTables: map[string]string{},
			NatGateways: map[string]string{},
			ElasticIPs:  map[string]string{},
		},
	}
}

// Complete reports whether every planned resource has been created
func (p NetworkPlan) Complete() bool {
	t := p.Spec.Topology
	if t == nil || p.Status.VPC == "" || p.Status.InternetGateway == "" || len(p.Status.PendingNatGateways) > 0 {
		return false
	}
	return lo.EveryBy(t.Subnets, func(s topology.SubnetPlan) bool { return p.Status.Subnets[s.ID] != "" }) &&
		lo.EveryBy(t.RouteTables, func(rt topology.RouteTablePlan) bool { return p.Status.RouteTables[rt.ID] != "" }) &&
		lo.EveryBy(t.NatGateways, func(n topology.NatGatewayPlan) bool { return p.Status.NatGateways[n.ID] != "" })
}

// AWSID returns the AWS ID created for a plan ID, or "" if it has not been created
func (s NetworkStatus) AWSID(planID string) string {
	for _, m := range []map[string]string{s.Subnets, s.RouteTables, s.NatGateways, s.ElasticIPs} {
		if id, ok := m[planID]; ok {
			return id
		}
	}
	return ""
}
