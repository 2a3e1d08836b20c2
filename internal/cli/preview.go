package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func newPreviewCommand(flags *globalFlags) *cobra.Command {
	var token, output string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the digest of the selected articles without sending it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := setup(cmd, flags)
			if err != nil {
				return err
			}
			if err := cfg.ValidateDigest(); err != nil {
				return err
			}

			c := newContainer(ctx, cfg, containerOptions{})
			defer c.close(ctx)

			html, err := c.preview(ctx, token)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write([]byte(html))
				return err
			}
			return os.WriteFile(output, []byte(html), 0o644)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "unsubscribe token to render into the digest")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the digest to the file instead of stdout")
	return cmd
}
