package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsflare-systems/opsflare/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "opsflare",
	Short: "Failure capture and notification dispatch",
	Long: `opsflare verifies and exercises a notification pipeline from the
command line: check which destinations are configured, and send test
events through the same dispatch path your workloads use.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: environment only)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}
