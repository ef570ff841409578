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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/bwagner5/vpcplan/pkg/logging"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	OutputYAML        = "yaml"
	OutputJSON        = "json"
	OutputTableShort  = "short"
	OutputTableWide   = "wide"
	OutputInteractive = "interactive"

	defaultNamespace = "default"
)

var (
	version = ""
)

type GlobalOptions struct {
	Namespace  string
	Verbose    bool
	Version    bool
	Output     string
	ConfigFile string
	Region     string
	Profile    string
}

var (
	globalOpts = GlobalOptions{}
	rootCmd    = &cobra.Command{
		Use:     "vpcplan",
		Short:   "Plan, synthesize and provision AWS VPC network topologies",
		Version: version,
	}
)

func main() {
	rootCmd.PersistentFlags().BoolVar(&globalOpts.Verbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.Version, "version", false, "version")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.Output, "output", "o", OutputTableShort,
		fmt.Sprintf("Output mode: %v", []string{OutputTableShort, OutputTableWide, OutputYAML, OutputJSON, OutputInteractive}))
	rootCmd.PersistentFlags().StringVarP(&globalOpts.ConfigFile, "file", "f", "", "YAML Config File")

	rootCmd.PersistentFlags().StringVarP(&globalOpts.Namespace, "namespace", "n", "", "Logical grouping of resources. All resources are tagged with the namespace.")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.Region, "region", "r", "", "AWS Region")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.Profile, "profile", "p", "", "AWS CLI Profile")

	rootCmd.AddCommand(&cobra.Command{Use: "completion", Hidden: true})
	cobra.EnableCommandSorting = false

	lo.Must0(rootCmd.Execute())
}

// withLogger puts a stderr logger on the command's context
func withLogger(cmd *cobra.Command) context.Context {
	return logging.ToContext(cmd.Context(), logging.DefaultLogger(globalOpts.Verbose))
}

// namespace picks the config file's namespace, then the flag, then the default
func namespace(configured string) string {
	ns, _ := lo.Coalesce(configured, globalOpts.Namespace, defaultNamespace)
	return ns
}

// ParseConfig decodes the config file over opts. Every key present in the file overrides the flag value,
// zero values included; absent keys keep it.
func ParseConfig[T any](globalOpts GlobalOptions, opts T) (T, error) {
	if globalOpts.ConfigFile == "" {
		return opts, nil
	}
	configBytes, err := os.ReadFile(globalOpts.ConfigFile)
	if err != nil {
		return opts, err
	}
	parsedOpts := opts
	if err := yaml.Unmarshal(configBytes, &parsedOpts); err != nil {
		return opts, err
	}
	return parsedOpts, nil
}

func AWSConfig(ctx context.Context, globalOptions GlobalOptions) (*aws.Config, error) {
	var options []func(*config.LoadOptions) error
	if globalOptions.Region != "" {
		options = append(options, config.WithRegion(globalOptions.Region))
	}
	if globalOptions.Profile != "" {
		options = append(options, config.WithSharedConfigProfile(globalOptions.Profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
