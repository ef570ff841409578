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
	"os"

	"github.com/bwagner5/vpcplan/pkg/network"
	"github.com/bwagner5/vpcplan/pkg/pretty"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

type DeleteOptions struct {
	Name  string
	Yes   bool
	Force bool
}

var (
	deleteOptions = DeleteOptions{}
	cmdDelete     = &cobra.Command{
		Use:   "delete",
		Short: "Delete a network created by apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return delete(withLogger(cmd), deleteOptions, globalOpts)
		},
	}
)

func init() {
	rootCmd.AddCommand(cmdDelete)
	cmdDelete.Flags().StringVar(&deleteOptions.Name, "name", "", "Name of the network")
	cmdDelete.Flags().BoolVarP(&deleteOptions.Yes, "yes", "y", false, "Don't ask, just do it!")
	cmdDelete.Flags().BoolVar(&deleteOptions.Force, "force", false, "Delete the whole VPC, including resources this tool did not create")
}

func delete(ctx context.Context, deleteOptions DeleteOptions, globalOpts GlobalOptions) error {
	if deleteOptions.Name == "" {
		return fmt.Errorf("a network name is required, set --name")
	}
	ns := namespace("")
	awsCfg, err := AWSConfig(ctx, globalOpts)
	if err != nil {
		return err
	}
	awsNetwork := network.New(awsCfg)

	if deleteOptions.Force {
		if !deleteOptions.Yes && !confirm(fmt.Sprintf("Delete VPC %s/%s and everything in it?", ns, deleteOptions.Name)) {
			return nil
		}
		if err := awsNetwork.ForceDelete(ctx, ns, deleteOptions.Name); err != nil {
			return err
		}
		fmt.Printf("Deleted %s/%s\n", ns, deleteOptions.Name)
		return nil
	}

	deletionPlan, err := awsNetwork.DeletionPlan(ctx, ns, deleteOptions.Name)
	if err != nil {
		return err
	}
	if deletionPlan.Empty() {
		fmt.Println("Nothing to delete")
		return nil
	}
	fmt.Println(pretty.Table(deletionPlan.Prettify(), false))
	if !deleteOptions.Yes && !confirm(fmt.Sprintf("Delete these resources of %s/%s?", ns, deleteOptions.Name)) {
		return nil
	}
	deletionPlan, err = awsNetwork.Delete(ctx, deletionPlan)
	if err != nil {
		pretty.WriteTable(os.Stderr, deletionPlan.Prettify(), true)
		return err
	}
	fmt.Printf("Deleted %s/%s\n", ns, deleteOptions.Name)
	return nil
}

func confirm(title string) bool {
	var ok bool
	if err := huh.NewConfirm().Title(title).Value(&ok).Run(); err != nil {
		return false
	}
	return ok
}
