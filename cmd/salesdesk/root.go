package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/becomeliminal/salesdesk/config"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "salesdesk",
		Short:        "Multi-agent sales assistant",
		Long:         longRoot,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (YAML); settings can also come from SALESDESK_* env vars")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(opts), newRouteCmd(opts), newVersionCmd())
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configFile)
}

var longRoot = `
salesdesk routes sales tasks (meeting summaries, lead scoring, lead
recommendations, proposals and follow-ups) to specialized agents that share
a blackboard of context documents and a vector index.

Examples:
  # Serve the HTTP API on :8080
  salesdesk serve

  # Classify and run a single payload
  salesdesk route --payload '{"requirements":"draft a proposal for Acme"}'
`
