package cli

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/sysjosh/digestd/internal/dispatch"
	"github.com/sysjosh/digestd/internal/metrics"
)

func newSendCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Send the digest of the selected articles to active subscribers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			if err := cfg.ValidateMail(); err != nil {
				return err
			}

			c := newContainer(ctx, cfg, containerOptions{})
			defer c.close(ctx)

			dispatcher, err := do.Invoke[*dispatch.Dispatcher](c.injector)
			if err != nil {
				return err
			}

			_, err = dispatcher.Run(ctx)
			c.pushMetrics(ctx, metrics.PipelineDigest)
			return err
		},
	}
}
