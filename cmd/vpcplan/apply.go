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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/bwagner5/vpcplan/pkg/logging"
	"github.com/bwagner5/vpcplan/pkg/network"
	"github.com/bwagner5/vpcplan/pkg/plans"
	"github.com/bwagner5/vpcplan/pkg/pretty"
	"github.com/bwagner5/vpcplan/pkg/providers/natgws"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type ApplyOptions struct {
	NetworkOptions
	DryRun     bool
	StateFile  string
	NatTimeout time.Duration
}

var (
	applyOptions = ApplyOptions{}
	cmdApply     = &cobra.Command{
		Use:   "apply",
		Short: "Create the planned network in AWS",
		Long: `Create the planned network in AWS.
With --state-file the plan and the IDs of everything created are saved, and a failed apply picks up where it stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return apply(withLogger(cmd), applyOptions, globalOpts)
		},
	}
)

func init() {
	rootCmd.AddCommand(cmdApply)
	addNetworkFlags(cmdApply, &applyOptions.NetworkOptions)
	cmdApply.Flags().BoolVarP(&applyOptions.DryRun, "dry-run", "d", false, "Will NOT create anything, only print the network plan")
	cmdApply.Flags().StringVar(&applyOptions.StateFile, "state-file", "", "JSON file to resume from and record the applied plan in")
	cmdApply.Flags().DurationVar(&applyOptions.NatTimeout, "nat-timeout", natgws.DefaultWaitTimeout, "How long to wait for each NAT Gateway to become available")
}

func apply(ctx context.Context, applyOptions ApplyOptions, globalOpts GlobalOptions) error {
	awsCfg, err := AWSConfig(ctx, globalOpts)
	if err != nil {
		return err
	}
	awsNetwork := network.New(awsCfg).WithNatGatewayTimeout(applyOptions.NatTimeout)

	networkPlan, found, err := loadState(applyOptions.StateFile)
	if err != nil {
		return err
	}
	if found {
		logging.FromContext(ctx).Info("Resuming network plan", "file", applyOptions.StateFile,
			"namespace", networkPlan.Metadata.Namespace, "name", networkPlan.Metadata.Name)
	} else {
		opts, err := resolveNetworkOptions(applyOptions.NetworkOptions)
		if err != nil {
			return err
		}
		if opts.zoneNamesNeeded() {
			if opts.ZoneNames, err = awsNetwork.AvailabilityZones(ctx, opts.ZoneCount); err != nil {
				return err
			}
		}
		opts.ZoneNames = fullZoneNames(awsCfg.Region, opts.ZoneNames)
		opts.Zones = lo.Map(opts.Zones, func(z ZoneOptions, _ int) ZoneOptions {
			z.Name = fullZoneNames(awsCfg.Region, []string{z.Name})[0]
			return z
		})
		if networkPlan, err = buildNetworkPlan(ctx, opts, awsCfg.Region); err != nil {
			return err
		}
	}

	networkPlan, err = awsNetwork.Apply(ctx, applyOptions.DryRun, networkPlan)
	if !applyOptions.DryRun {
		if saveErr := saveState(applyOptions.StateFile, networkPlan); saveErr != nil {
			err = errors.Join(err, saveErr)
		}
	}
	if err != nil {
		pretty.WriteTable(os.Stderr, networkPlan.Prettify(), true)
		return err
	}
	if err := printNetworkPlan(ctx, networkPlan, globalOpts); err != nil {
		return err
	}
	if !applyOptions.DryRun {
		fmt.Printf("Applied %s/%s\n", networkPlan.Metadata.Namespace, networkPlan.Metadata.Name)
	}
	return nil
}

func loadState(path string) (plans.NetworkPlan, bool, error) {
	var networkPlan plans.NetworkPlan
	if path == "" {
		return networkPlan, false, nil
	}
	stateBytes, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return networkPlan, false, nil
	}
	if err != nil {
		return networkPlan, false, err
	}
	if err := json.Unmarshal(stateBytes, &networkPlan); err != nil {
		return networkPlan, false, fmt.Errorf("reading state file %s: %w", path, err)
	}
	return networkPlan, true, nil
}

func saveState(path string, networkPlan plans.NetworkPlan) error {
	if path == "" {
		return nil
	}
	state, err := pretty.EncodeJSON(networkPlan)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(state), 0o644); err != nil {
		return fmt.Errorf("writing state file %s: %w", path, err)
	}
	return nil
}
