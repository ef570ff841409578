package plans

import (
	"fmt"
	"strings"

	"github.com/bwagner5/vpcplan/pkg/topology"
	"github.com/samber/lo"
)

// PrettyResource is one row of a network plan table
type PrettyResource struct {
	Type      string `table:"Type"`
	ID        string `table:"ID"`
	Zone      string `table:"Zone"`
	CIDR      string `table:"CIDR"`
	Routes    string `table:"Routes"`
	Addresses string `table:"Addresses,wide"`
	Members   string `table:"Members,wide"`
	AWSID     string `table:"AWS ID,wide"`
}

// Prettify lists every planned resource in creation order
func (p NetworkPlan) Prettify() []PrettyResource {
	t := p.Spec.Topology
	if t == nil {
		return nil
	}
	resources := []PrettyResource{
		{Type: "VPC", ID: "VPC", CIDR: t.VPC.String(), Addresses: fmt.Sprint(t.VPC.Size()), AWSID: p.Status.VPC},
		{Type: "InternetGateway", ID: t.InternetGatewayID, AWSID: p.Status.InternetGateway},
	}
	for _, subnet := range t.Subnets {
		rt, _ := t.RouteTableFor(subnet.ID)
		resources = append(resources, PrettyResource{
			Type:      "Subnet/" + string(subnet.Kind),
			ID:        subnet.ID,
			Zone:      string(subnet.Zone),
			CIDR:      subnet.Block.String(),
			Routes:    rt.ID,
			Addresses: fmt.Sprint(subnet.Block.Size()),
			AWSID:     p.Status.Subnets[subnet.ID],
		})
	}
	for _, natGW := range t.NatGateways {
		resources = append(resources, PrettyResource{
			Type:    "NatGateway",
			ID:      natGW.ID,
			Zone:    string(natGW.Zone),
			Routes:  natGW.SubnetID,
			Members: natGW.ElasticIPID,
			AWSID:   p.Status.NatGateways[natGW.ID],
		})
	}
	for _, rt := range t.RouteTables {
		resources = append(resources, PrettyResource{
			Type:    "RouteTable",
			ID:      rt.ID,
			Zone:    string(rt.Zone),
			Routes:  routeTarget(t, rt.Default),
			Members: strings.Join(rt.SubnetIDs, " "),
			AWSID:   p.Status.RouteTables[rt.ID],
		})
	}
	return resources
}

func routeTarget(t *topology.TopologyPlan, target topology.RouteTarget) string {
	switch target.Kind {
	case topology.RouteTargetInternetGateway:
		return "0.0.0.0/0 -> " + t.InternetGatewayID
	case topology.RouteTargetNatGateway:
		return "0.0.0.0/0 -> " + target.NatGatewayID
	}
	return "local"
}

// PrettyDeletion is one row of a deletion plan table
type PrettyDeletion struct {
	Type    string `table:"Type"`
	ID      string `table:"ID"`
	PlanID  string `table:"Plan ID"`
	Deleted string `table:"Deleted,wide"`
}

// Prettify lists resources in the order they will be deleted
func (d DeletionPlan) Prettify() []PrettyDeletion {
	var rows []PrettyDeletion
	add := func(kind string, id string, planID string, deleted map[string]bool) {
		rows = append(rows, PrettyDeletion{Type: kind, ID: id, PlanID: planID, Deleted: fmt.Sprint(deleted[id])})
	}
	for _, n := range d.Spec.NatGateways {
		add("NatGateway", lo.FromPtr(n.NatGatewayId), planIDOf(n.Tags), d.Status.NatGateways)
	}
	for _, e := range d.Spec.ElasticIPs {
		add("ElasticIP", lo.FromPtr(e.AllocationId), planIDOf(e.Tags), d.Status.ElasticIPs)
	}
	for _, igw := range d.Spec.InternetGateways {
		add("InternetGateway", lo.FromPtr(igw.InternetGatewayId), planIDOf(igw.Tags), d.Status.InternetGateways)
	}
	for _, rt := range d.Spec.RouteTables {
		add("RouteTable", lo.FromPtr(rt.RouteTableId), planIDOf(rt.Tags), d.Status.RouteTables)
	}
	for _, s := range d.Spec.Subnets {
		add("Subnet", lo.FromPtr(s.SubnetId), s.PlanID(), d.Status.Subnets)
	}
	for _, v := range d.Spec.VPCs {
		add("VPC", lo.FromPtr(v.VpcId), planIDOf(v.Tags), d.Status.VPCs)
	}
	return rows
}
