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
	"context"
	"fmt"

	"github.com/bwagner5/vpcplan/pkg/logging"
	"github.com/bwagner5/vpcplan/pkg/plans"
	"github.com/bwagner5/vpcplan/pkg/pretty"
	"github.com/bwagner5/vpcplan/pkg/topology"
	"github.com/bwagner5/vpcplan/pkg/tui"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	planOptions = NetworkOptions{}
	cmdPlan     = &cobra.Command{
		Use:   "plan",
		Short: "Plan a network topology without touching AWS",
		Long: `Plan a network topology without touching AWS.
Zones default to region relative letters (a, b, c...) so the plan can be rendered without credentials.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return plan(withLogger(cmd), planOptions, globalOpts)
		},
	}
)

func init() {
	rootCmd.AddCommand(cmdPlan)
	addNetworkFlags(cmdPlan, &planOptions)
}

func plan(ctx context.Context, planOptions NetworkOptions, globalOpts GlobalOptions) error {
	opts, err := resolveNetworkOptions(planOptions)
	if err != nil {
		return err
	}
	if opts.zoneNamesNeeded() {
		opts.ZoneNames = letterZones(opts.ZoneCount)
	}
	networkPlan, err := buildNetworkPlan(ctx, opts, globalOpts.Region)
	if err != nil {
		return err
	}
	return printNetworkPlan(ctx, networkPlan, globalOpts)
}

func buildNetworkPlan(ctx context.Context, opts NetworkOptions, region string) (plans.NetworkPlan, error) {
	req, err := opts.Request()
	if err != nil {
		return plans.NetworkPlan{}, err
	}
	logging.FromContext(ctx).Debug("Planning network", "namespace", opts.Namespace, "name", opts.Name,
		"vpc", req.VPC, "zones", len(req.Zones), "natStrategy", req.NatStrategy)
	topo, err := topology.Plan(req)
	if err != nil {
		return plans.NetworkPlan{}, err
	}
	return plans.NewNetworkPlan(opts.Namespace, opts.Name, region, topo), nil
}

func printNetworkPlan(ctx context.Context, networkPlan plans.NetworkPlan, globalOpts GlobalOptions) error {
	switch globalOpts.Output {
	case OutputJSON, OutputYAML:
		return printEncoded(networkPlan, globalOpts.Output)
	case OutputTableShort, OutputTableWide:
		fmt.Println(pretty.Table(networkPlan.Prettify(), globalOpts.Output == OutputTableWide))
	case OutputInteractive:
		return tui.Launch(ctx, networkPlan, globalOpts.Verbose)
	default:
		return fmt.Errorf("unknown output mode %q", globalOpts.Output)
	}
	return nil
}

func printEncoded(data any, output string) error {
	encode := lo.Ternary(output == OutputJSON, pretty.EncodeJSON, pretty.EncodeYAML)
	out, err := encode(data)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
