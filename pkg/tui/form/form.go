// Package form gathers a network request interactively.
package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwagner5/vpcplan/pkg/addrsize"
	"github.com/bwagner5/vpcplan/pkg/topology"
	"github.com/charmbracelet/huh"
)

// Answers holds the form values. Fields that are set before the form runs are used as defaults.
type Answers struct {
	Namespace          string
	Name               string
	VPCCIDR            string
	Zones              string
	Public             string
	Private            string
	SubnetSize         string
	NatStrategy        string
	DedicatedNatSubnet bool
}

// New builds the request form bound to answers
func New(answers *Answers) *huh.Form {
	if answers.NatStrategy == "" {
		answers.NatStrategy = "shared"
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Namespace").Value(&answers.Namespace).Validate(notEmpty("namespace")),
			huh.NewInput().Title("Name").Value(&answers.Name).Validate(notEmpty("name")),
			huh.NewInput().Title("VPC CIDR").Placeholder("10.0.0.0/16").Value(&answers.VPCCIDR).Validate(validateCIDR),
		).Title("Network"),
		huh.NewGroup(
			huh.NewInput().Title("Availability Zones").
				Description("Comma separated, e.g. us-east-1a,us-east-1b").
				Value(&answers.Zones).Validate(validateZones),
			huh.NewInput().Title("Public subnets per zone").Value(&answers.Public).Validate(validateCount),
			huh.NewInput().Title("Private subnets per zone").Value(&answers.Private).Validate(validateCount),
			huh.NewInput().Title("Subnet size").Placeholder("/24").
				Description("A prefix (/24) or an address count (256, 4Ki)").
				Value(&answers.SubnetSize).Validate(validateSize),
		).Title("Subnets"),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("NAT Gateway strategy").
				Options(
					huh.NewOption("One per availability zone", "shared"),
					huh.NewOption("One per private subnet", "dedicated"),
				).
				Value(&answers.NatStrategy),
			huh.NewConfirm().Title("Place NAT Gateways in their own public subnet?").Value(&answers.DedicatedNatSubnet),
		).Title("NAT"),
	)
}

// Run shows the form and fills answers
func Run(answers *Answers) error {
	if err := New(answers).Run(); err != nil {
		return fmt.Errorf("reading network request: %w", err)
	}
	return nil
}

// ZoneList splits the comma separated zones answer
func (a Answers) ZoneList() []string {
	var zones []string
	for _, zone := range strings.Split(a.Zones, ",") {
		if zone = strings.TrimSpace(zone); zone != "" {
			zones = append(zones, zone)
		}
	}
	return zones
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateCIDR(s string) error {
	_, err := topology.ParseAddressBlock(strings.TrimSpace(s))
	return err
}

func validateZones(s string) error {
	if len((Answers{Zones: s}).ZoneList()) == 0 {
		return fmt.Errorf("at least one zone is required")
	}
	return nil
}

func validateCount(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("%q is not a subnet count", s)
	}
	return nil
}

func validateSize(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := addrsize.Parse(s)
	return err
}
