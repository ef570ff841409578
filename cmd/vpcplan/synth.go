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

	"github.com/bwagner5/vpcplan/pkg/cfn"
	"github.com/bwagner5/vpcplan/pkg/logging"
	"github.com/spf13/cobra"
)

type SynthOptions struct {
	NetworkOptions
	OutDir         string
	Description    string
	SkipNetworkACL bool
	Stdout         bool
}

var (
	synthOptions = SynthOptions{}
	cmdSynth     = &cobra.Command{
		Use:   "synth",
		Short: "Render a network topology as a CloudFormation template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return synth(withLogger(cmd), synthOptions, globalOpts)
		},
	}
)

func init() {
	rootCmd.AddCommand(cmdSynth)
	addNetworkFlags(cmdSynth, &synthOptions.NetworkOptions)
	cmdSynth.Flags().StringVar(&synthOptions.OutDir, "out-dir", "dist", "Directory the template is written to")
	cmdSynth.Flags().StringVar(&synthOptions.Description, "description", cfn.DefaultDescription, "Template description")
	cmdSynth.Flags().BoolVar(&synthOptions.SkipNetworkACL, "skip-network-acl", false, "Leave out the allow-all public network ACL")
	cmdSynth.Flags().BoolVar(&synthOptions.Stdout, "stdout", false, "Print the template instead of writing it to --out-dir")
}

func synth(ctx context.Context, synthOptions SynthOptions, globalOpts GlobalOptions) error {
	opts, err := resolveNetworkOptions(synthOptions.NetworkOptions)
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
	tmpl, err := cfn.New(cfn.Options{
		TagPrefix:      opts.Namespace,
		Description:    synthOptions.Description,
		SkipNetworkACL: synthOptions.SkipNetworkACL,
	}).Synthesize(networkPlan.Spec.Topology)
	if err != nil {
		return err
	}

	if synthOptions.Stdout {
		out, err := formatTemplate(tmpl, globalOpts.Output)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	path, err := cfn.Export(synthOptions.OutDir, fmt.Sprintf("%s-%s", opts.Namespace, opts.Name), tmpl)
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("Wrote CloudFormation template", "path", path, "resources", len(tmpl.Resources))
	fmt.Println(path)
	return nil
}

func formatTemplate(tmpl *cfn.Template, output string) ([]byte, error) {
	if output == OutputJSON {
		return tmpl.JSON()
	}
	return tmpl.YAML()
}
