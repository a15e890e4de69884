// Package cli holds the operator commands shared by coinpulsectl and
// lockclean.
package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"coinpulse/internal/config"
	logx "coinpulse/pkg/logx"
)

// version can be overridden at build time via:
// go build -ldflags "-X coinpulse/internal/cli.version=1.2.3"
var version = "dev"

const defaultConfigPath = "./config.yaml"

type rootOptions struct {
	configPath string
}

// NewRootCmd builds the coinpulsectl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "coinpulsectl",
		Short:         "Operate the coinpulse daily scheduler",
		Long:          color.CyanString("coinpulsectl") + " runs the daily job by hand, inspects the schedule and cleans up stale lock files.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to config (.yaml or .json)")

	root.AddCommand(
		newRunNowCmd(opts),
		newStatusCmd(opts),
		NewCleanLocksCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coinpulsectl %s\n", version)
		},
	}
}

func (o *rootOptions) load() (*config.Config, error) {
	if o == nil || o.configPath == "" {
		return nil, errors.New("no config path")
	}
	return config.NewManager(o.configPath, logx.Nop()).Load()
}
