package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vietddude/judgewatch/internal/control"
	"github.com/vietddude/judgewatch/internal/infra/judge"
)

var problemQuery judge.ProblemQuery

var problemsCmd = &cobra.Command{
	Use:   "problems",
	Short: "List problems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			page, src, err := app.Client.ListProblems(ctx, problemQuery)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSource(cmd.ErrOrStderr(), src)
			if jsonOut {
				return printJSON(out, page)
			}
			return printProblems(out, page)
		})
	},
}

var problemCmd = &cobra.Command{
	Use:   "problem <slug>",
	Short: "Show a problem statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			p, src, err := app.Client.Problem(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSource(cmd.ErrOrStderr(), src)
			if jsonOut {
				return printJSON(out, p)
			}
			printProblem(out, p)
			return nil
		})
	},
}

func init() {
	problemsCmd.Flags().StringVar(&problemQuery.Cursor, "cursor", "", "page cursor from a previous listing")
	problemsCmd.Flags().StringVar(&problemQuery.Filter, "filter", "", "server-side filter, e.g. a difficulty or tag")

	rootCmd.AddCommand(problemsCmd)
	rootCmd.AddCommand(problemCmd)
}
