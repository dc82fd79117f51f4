// Package cmd implements the sentinelctl command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sentinelvnc/sentinel/cli/internal/config"
	"github.com/sentinelvnc/sentinel/cli/pkg/output"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	cfgFile string
	format  string
	cfg     *config.Config
}

// NewRootCmd builds the sentinelctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sentinelctl",
		Short: "SentinelVNC operator CLI",
		Long: `sentinelctl is the operator command-line interface for SentinelVNC.

Capture and verify forensic evidence locally, export evidence bundles,
inspect incidents held by the risk engine, and mint service tokens.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			_, err = output.ParseFormat(a.format)
			return err
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.sentinel/config.yaml)")
	root.PersistentFlags().StringVarP(&a.format, "output", "o", "table", "output format: table, json, yaml")

	root.AddCommand(newForensicsCmd(a), newIncidentsCmd(a), newTokenCmd(a))
	return root
}

func (a *app) printer(cmd *cobra.Command) *output.Printer {
	f, _ := output.ParseFormat(a.format)
	return output.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), f)
}

// Execute runs sentinelctl and reports a failure on stderr.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		output.New(root.OutOrStdout(), root.ErrOrStderr(), output.FormatTable).Error("%v", err)
		return err
	}
	return nil
}
