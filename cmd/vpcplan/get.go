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

	"github.com/bwagner5/vpcplan/pkg/network"
	"github.com/bwagner5/vpcplan/pkg/pretty"
	"github.com/spf13/cobra"
)

type GetOptions struct {
	Name string
}

var (
	getOptions = GetOptions{}
	cmdGet     = &cobra.Command{
		Use:   "get",
		Short: "List the AWS resources of a network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return get(withLogger(cmd), getOptions, globalOpts)
		},
	}
)

func init() {
	rootCmd.AddCommand(cmdGet)
	cmdGet.Flags().StringVar(&getOptions.Name, "name", "", "Name of the network")
}

func get(ctx context.Context, getOptions GetOptions, globalOpts GlobalOptions) error {
	if getOptions.Name == "" {
		return fmt.Errorf("a network name is required, set --name")
	}
	awsCfg, err := AWSConfig(ctx, globalOpts)
	if err != nil {
		return err
	}
	resources, err := network.New(awsCfg).DeletionPlan(ctx, namespace(""), getOptions.Name)
	if err != nil {
		return err
	}
	switch globalOpts.Output {
	case OutputJSON, OutputYAML:
		return printEncoded(resources.Spec, globalOpts.Output)
	default:
		if resources.Empty() {
			fmt.Println("No resources found")
			return nil
		}
		fmt.Println(pretty.Table(resources.Prettify(), globalOpts.Output == OutputTableWide))
	}
	return nil
}
