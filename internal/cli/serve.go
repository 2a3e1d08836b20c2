package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/sysjosh/digestd/internal/scheduler"
	"github.com/sysjosh/digestd/internal/server"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run periodic ingestion and serve the HTTP interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := setup(cmd, flags)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := cfg.ValidateDigest(); err != nil {
				logging.L(ctx).Warnf("Digest preview is unavailable: %s.", err)
			}

			c := newContainer(ctx, cfg, containerOptions{})
			defer c.close(ctx)

			ingestion, err := do.Invoke[*scheduler.Scheduler](c.injector)
			if err != nil {
				return err
			}
			httpServer, err := do.Invoke[*server.Server](c.injector)
			if err != nil {
				return err
			}

			ingestion.Start(ctx, runNow)
			defer ingestion.Stop(context.WithoutCancel(ctx))

			return httpServer.Serve(ctx, cfg.Server.Listen)
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "run ingestion immediately on start")
	return cmd
}
