package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vietddude/judgewatch/internal/control"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the signed-in user's profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			p, src, err := app.Client.Profile(ctx)
			if err != nil {
				return err
			}
			printSource(cmd.ErrOrStderr(), src)
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), p)
			}
			return printProfile(cmd.OutOrStdout(), p)
		})
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
