/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwagner5/vpcplan/pkg/addrsize"
	"github.com/bwagner5/vpcplan/pkg/topology"
	"github.com/bwagner5/vpcplan/pkg/tui/form"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const (
	defaultVPCCIDR   = "10.0.0.0/16"
	defaultZoneCount = 3
)

type ZoneOptions struct {
	Name    string `yaml:"name"`
	Public  int    `yaml:"public"`
	Private int    `yaml:"private"`
}

// NetworkOptions describes the network to plan. It is filled from flags, then overridden by the config file.
type NetworkOptions struct {
	Namespace          string        `yaml:"namespace"`
	Name               string        `yaml:"name"`
	VPCCIDR            string        `yaml:"vpcCIDR"`
	NatStrategy        string        `yaml:"natStrategy"`
	SubnetSize         string        `yaml:"subnetSize"`
	PublicSubnetSize   string        `yaml:"publicSubnetSize"`
	PrivateSubnetSize  string        `yaml:"privateSubnetSize"`
	NatSubnetSize      string        `yaml:"natSubnetSize"`
	DedicatedNatSubnet bool          `yaml:"dedicatedNatSubnet"`
	ZoneNames          []string      `yaml:"zoneNames"`
	ZoneCount          int           `yaml:"zoneCount"`
	Public             int           `yaml:"public"`
	Private            int           `yaml:"private"`
	Zones              []ZoneOptions `yaml:"zones"`
	Prompt             bool          `yaml:"-"`
}

func addNetworkFlags(cmd *cobra.Command, opts *NetworkOptions) {
	cmd.Flags().StringVar(&opts.Name, "name", "", "Name of the network")
	cmd.Flags().StringVar(&opts.VPCCIDR, "vpc-cidr", defaultVPCCIDR, "IPv4 CIDR block of the VPC")
	cmd.Flags().StringSliceVar(&opts.ZoneNames, "zones", nil, "Availability Zones, either full names (us-east-1a) or region relative letters (a,b,c)")
	cmd.Flags().IntVar(&opts.ZoneCount, "zone-count", defaultZoneCount, "Number of Availability Zones to use when --zones is not given")
	cmd.Flags().IntVar(&opts.Public, "public", 1, "Public subnets per Availability Zone")
	cmd.Flags().IntVar(&opts.Private, "private", 1, "Private subnets per Availability Zone")
	cmd.Flags().StringVar(&opts.NatStrategy, "nat-strategy", "shared", "NAT Gateway placement: shared (one per zone) or dedicated (one per private subnet)")
	cmd.Flags().StringVar(&opts.SubnetSize, "subnet-size", "", "Default subnet size as a prefix (/24) or address count (256, 1Ki)")
	cmd.Flags().StringVar(&opts.PublicSubnetSize, "public-subnet-size", "", "Public subnet size, overrides --subnet-size")
	cmd.Flags().StringVar(&opts.PrivateSubnetSize, "private-subnet-size", "", "Private subnet size, overrides --subnet-size")
	cmd.Flags().StringVar(&opts.NatSubnetSize, "nat-subnet-size", "", "NAT subnet size, overrides --subnet-size")
	cmd.Flags().BoolVar(&opts.DedicatedNatSubnet, "nat-subnet", false, "Place NAT Gateways in their own public subnet per zone")
	cmd.Flags().BoolVar(&opts.Prompt, "prompt", false, "Fill in the network interactively")
}

// resolveNetworkOptions merges the config file over the flags and, with --prompt, asks for the rest
func resolveNetworkOptions(opts NetworkOptions) (NetworkOptions, error) {
	opts, err := ParseConfig(globalOpts, opts)
	if err != nil {
		return opts, err
	}
	opts.Namespace = namespace(opts.Namespace)
	if opts.Prompt {
		if opts, err = prompt(opts); err != nil {
			return opts, err
		}
	}
	if opts.Name == "" {
		return opts, fmt.Errorf("a network name is required, set --name")
	}
	return opts, nil
}

func prompt(opts NetworkOptions) (NetworkOptions, error) {
	answers := form.Answers{
		Namespace:          opts.Namespace,
		Name:               opts.Name,
		VPCCIDR:            opts.VPCCIDR,
		Zones:              strings.Join(opts.ZoneNames, ","),
		Public:             strconv.Itoa(opts.Public),
		Private:            strconv.Itoa(opts.Private),
		SubnetSize:         opts.SubnetSize,
		NatStrategy:        opts.NatStrategy,
		DedicatedNatSubnet: opts.DedicatedNatSubnet,
	}
	if err := form.Run(&answers); err != nil {
		return opts, err
	}
	opts.Namespace = answers.Namespace
	opts.Name = answers.Name
	opts.VPCCIDR = answers.VPCCIDR
	opts.ZoneNames = answers.ZoneList()
	opts.SubnetSize = answers.SubnetSize
	opts.NatStrategy = answers.NatStrategy
	opts.DedicatedNatSubnet = answers.DedicatedNatSubnet
	// the form validates counts
	opts.Public = lo.Must(strconv.Atoi(lo.Ternary(answers.Public == "", "0", answers.Public)))
	opts.Private = lo.Must(strconv.Atoi(lo.Ternary(answers.Private == "", "0", answers.Private)))
	// per zone overrides from the config file no longer match the answered zones
	opts.Zones = nil
	return opts, nil
}

// zoneNamesNeeded reports whether zones must be discovered before a request can be built
func (o NetworkOptions) zoneNamesNeeded() bool {
	return len(o.Zones) == 0 && len(o.ZoneNames) == 0
}

// letterZones names zones relative to the region: a, b, c...
func letterZones(count int) []string {
	return lo.Times(count, func(i int) string { return string(rune('a' + i)) })
}

// fullZoneNames expands region relative letters into full zone names
func fullZoneNames(region string, zones []string) []string {
	return lo.Map(zones, func(zone string, _ int) string {
		if len(zone) == 1 {
			return region + zone
		}
		return zone
	})
}

// Request converts the options into a topology request
func (o NetworkOptions) Request() (topology.Request, error) {
	strategy, err := topology.ParseNatStrategy(lo.Ternary(o.NatStrategy == "", "shared", o.NatStrategy))
	if err != nil {
		return topology.Request{}, err
	}
	sizes := topology.KindSizes{}
	for _, size := range []struct {
		flag  string
		value string
		into  *int
	}{
		{"subnet-size", o.SubnetSize, &sizes.Default},
		{"public-subnet-size", o.PublicSubnetSize, &sizes.Public},
		{"private-subnet-size", o.PrivateSubnetSize, &sizes.Private},
		{"nat-subnet-size", o.NatSubnetSize, &sizes.NAT},
	} {
		if size.value == "" {
			continue
		}
		prefix, err := addrsize.Parse(size.value)
		if err != nil {
			return topology.Request{}, fmt.Errorf("%s: %w", size.flag, err)
		}
		*size.into = prefix.Int()
	}

	zones := lo.Map(o.Zones, func(z ZoneOptions, _ int) topology.ZoneRequest {
		return topology.ZoneRequest{Name: topology.AvailabilityZone(z.Name), Public: z.Public, Private: z.Private}
	})
	if len(zones) == 0 {
		zones = lo.Map(o.ZoneNames, func(name string, _ int) topology.ZoneRequest {
			return topology.ZoneRequest{Name: topology.AvailabilityZone(name), Public: o.Public, Private: o.Private}
		})
	}
	return topology.Request{
		VPC:                o.VPCCIDR,
		Zones:              zones,
		NatStrategy:        strategy,
		Sizing:             sizes,
		DedicatedNatSubnet: o.DedicatedNatSubnet,
	}, nil
}
