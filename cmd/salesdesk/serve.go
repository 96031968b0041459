package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/becomeliminal/salesdesk/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr, grpcAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, WebSocket stream and gRPC health check",
		Long:  longServe,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("grpc-addr") {
				cfg.Server.GRPCAddr = grpcAddr
			}

			a, err := buildApp(cfg, appOverrides{})
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address (overrides server.addr)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC health listen address (overrides server.grpc_addr)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	srv := server.New(a.engine, a.mem, server.WithLeadIndexer(a.agents.LeadRecommendation))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx, a.cfg.Server.Addr) })
	g.Go(func() error { return a.runBackground(ctx) })

	if a.cfg.Server.GRPCAddr != "" {
		h, err := server.NewHealth(a.cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		g.Go(func() error { return h.Serve(ctx) })
	}

	a.log.Info("salesdesk started", "agents", a.engine.Registry().Tasks(), "backend", a.cfg.Memory.Backend)
	return g.Wait()
}

var longServe = `
Serve the HTTP API.

Routes:
  POST /tasks              classify and run any payload
  POST /process-meeting    meeting_summary
  POST /lead-suggestions   lead_recommendation
  POST /score-leads        lead_scoring
  POST /proposal           proposal_drafting
  POST /follow-up          follow_up
  POST /leads              index a lead for recommendations
  GET  /context/{key}      latest blackboard entry
  GET  /agents             registered agents
  GET  /health
  GET  /ws                 one payload per text frame, one envelope per reply
`
