package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent"
	"github.com/Suryanshpandey5492/WebVision/pkg/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr        string
		profileInfo string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /query over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					a.logger.Warnf("shutdown: %v", err)
				}
			}()

			var runOpts []agent.RunOption
			if profileInfo != "" {
				runOpts = append(runOpts, agent.WithProfileInfo(profileInfo))
			}
			srv := server.New(a.agent, a.store,
				server.WithLogger(a.logger.With("component", "server")),
				server.WithRunOptions(runOpts...))
			cmd.Printf("webvision %s listening on %s\n", version, addr)
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :5000)")
	cmd.Flags().StringVar(&profileInfo, "profile-info", "", "context about the target to include in prompts")
	return cmd
}
