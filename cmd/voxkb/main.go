// Package main is the voxkb CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hyperjump/voxkb/internal/config"
)

var version = "dev"

const defaultConfigFile = "config.yaml"

type rootOptions struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "voxkb",
		Short: "Knowledge base retrieval for voice agents",
		Long: `voxkb ingests documents into a local vector knowledge base and serves
diverse, relevant context to a voice agent over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	cmd.SetVersionTemplate("voxkb version {{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (default ./config.yaml when present)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newClearCmd(opts),
		newRetrieveCmd(opts),
		newAskCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig loads path, or ./config.yaml when path is empty and the file
// exists, or the built-in defaults. It returns the path actually used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return config.Default(), "", nil
		}
		path = defaultConfigFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return cfg, abs, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "voxkb version %s\n", version)
		},
	}
}
