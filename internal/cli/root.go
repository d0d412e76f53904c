// Package cli implements the command-line interface for apilens.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "apilens",
	Short: "apilens - Cross-reference frontend API calls with backend routes",
	Long: `apilens scans a frontend codebase for HTTP API call sites and a backend
codebase for endpoint definitions, normalizes both into canonical route
keys, and reports which calls resolve, which endpoints are ambiguous, and
where path parameters disagree.

Commands:
  init       Initialize a .apilens.yaml config file
  scan       Scan both trees and build the endpoint index
  list       List indexed endpoints with their status
  lookup     Show the full record for one endpoint
  at         Resolve the endpoint under a file position
  watch      Rescan automatically on source changes
  config     Show the effective configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .apilens.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	bindFlag := func(key, flag string) {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", flag, err))
		}
	}
	bindFlag("config_file", "config")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newLookupCmd())
	rootCmd.AddCommand(newAtCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}
