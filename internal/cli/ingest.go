package cli

import (
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/sysjosh/digestd/internal/ingest"
	"github.com/sysjosh/digestd/internal/metrics"
)

func newIngestCommand(flags *globalFlags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch the feeds and store new articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := setup(cmd, flags)
			if err != nil {
				return err
			}

			c := newContainer(ctx, cfg, containerOptions{dryRun: dryRun})
			defer c.close(ctx)

			pipeline, err := do.Invoke[*ingest.Pipeline](c.injector)
			if err != nil {
				return err
			}

			_, err = pipeline.Run(ctx)
			c.pushMetrics(ctx, metrics.PipelineIngest)
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "fetch and deduplicate, but don't store anything")
	return cmd
}
