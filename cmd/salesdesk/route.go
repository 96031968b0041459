package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/becomeliminal/salesdesk/core"
	"github.com/becomeliminal/salesdesk/llm"
)

var errTaskFailed = errors.New("task failed")

func newRouteCmd(root *rootOptions) *cobra.Command {
	var (
		payload  string
		classify bool
		offline  bool
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Classify a payload and run it through the engine",
		Long:  longRoute,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := []byte(payload)
			if payload == "-" {
				var err error
				if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read payload: %w", err)
				}
			}
			var in core.Input
			if err := json.Unmarshal(raw, &in); err != nil {
				return fmt.Errorf("payload must be a JSON object: %w", err)
			}

			cfg, err := root.load()
			if err != nil {
				return err
			}

			var ov appOverrides
			if offline {
				ov.llm = llm.Func(func(_ context.Context, prompt string) (string, error) {
					return "offline: no model configured", nil
				})
			}
			a, err := buildApp(cfg, ov)
			if err != nil {
				return err
			}
			defer a.close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if classify {
				return enc.Encode(map[string]any{"task_type": a.engine.Router().Classify(in)})
			}

			env := a.engine.Execute(cmd.Context(), in)
			if err := enc.Encode(env); err != nil {
				return err
			}
			if !env.OK() {
				return fmt.Errorf("%w: %s", errTaskFailed, env.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&payload, "payload", "p", "", `JSON payload, or "-" to read it from stdin`)
	cmd.Flags().BoolVar(&classify, "classify", false, "only print the task the payload routes to")
	cmd.Flags().BoolVar(&offline, "offline", false, "answer model prompts with a canned reply instead of calling the LLM")
	cmd.MarkFlagRequired("payload")
	return cmd
}

var longRoute = `
Run one payload through the router and the registered agents, printing the
resulting envelope. Exits non-zero when the envelope reports an error.

Examples:
  salesdesk route --payload '{"lead_info":{"name":"Acme","engagement":"high"}}'
  salesdesk route --classify --payload '{"requirements":"draft a proposal"}'
  echo '{"requirements":"fintech, 50-200 staff"}' | salesdesk route --payload -
`
