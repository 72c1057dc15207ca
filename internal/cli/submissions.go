package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietddude/judgewatch/internal/control"
	"github.com/vietddude/judgewatch/internal/core/domain"
	"github.com/vietddude/judgewatch/internal/infra/judge"
)

var (
	submissionQuery judge.SubmissionQuery
	submitLang      string
	submitWatch     bool
)

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "List recent submissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			page, src, err := app.Client.ListSubmissions(ctx, submissionQuery)
			if err != nil {
				return err
			}
			printSource(cmd.ErrOrStderr(), src)
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), page)
			}
			return printSubmissions(cmd.OutOrStdout(), page)
		})
	},
}

var submissionCmd = &cobra.Command{
	Use:   "submission <id>",
	Short: "Show one submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			s, src, err := app.Client.Submission(ctx, args[0])
			if err != nil {
				return err
			}
			printSource(cmd.ErrOrStderr(), src)
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), s)
			}
			printSubmission(cmd.OutOrStdout(), s)
			return nil
		})
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <slug> <file>",
	Short: "Submit a solution",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read solution: %w", err)
		}
		lang := submitLang
		if lang == "" {
			lang = languageFromExt(args[1])
		}
		if lang == "" {
			return fmt.Errorf("cannot infer language for %s, pass --lang", args[1])
		}

		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			s, err := app.Client.Submit(ctx, domain.SubmitRequest{
				ProblemSlug: args[0],
				Language:    lang,
				Code:        string(code),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitted %s: %s\n", s.ID, statusLabel(s.Status))
			if !submitWatch || s.Status.IsTerminal() {
				return nil
			}
			app.Monitor.Track(s.ID, s.Status)
			return watchUntilDone(ctx, app, out)
		})
	},
}

var abortCmd = &cobra.Command{
	Use:   "abort <id>",
	Short: "Abort a running submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			if err := app.Client.Abort(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Aborted %s\n", args[0])
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <id>...",
	Short: "Follow submissions until the judge returns a verdict",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			out := cmd.OutOrStdout()
			for _, id := range args {
				s, _, err := app.Client.Submission(ctx, id)
				if err != nil {
					slog.Warn("Failed to load submission, tracking anyway", "id", id, "error", err)
					app.Monitor.Track(id, domain.StatusUnknown)
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", id, statusLabel(s.Status))
				app.Monitor.Track(id, s.Status)
			}
			return watchUntilDone(ctx, app, out)
		})
	},
}

// watchUntilDone prints status events until nothing is tracked or the user interrupts.
func watchUntilDone(ctx context.Context, app *control.App, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- app.Monitor.Wait(ctx) }()

	events := app.Events.Events()
	for {
		select {
		case ev := <-events:
			printEvent(out, ev)
		case err := <-done:
			for {
				select {
				case ev := <-events:
					printEvent(out, ev)
				default:
					if ctx.Err() != nil {
						fmt.Fprintln(out, "Stopped watching.")
						return nil
					}
					return err
				}
			}
		}
	}
}

var extLanguages = map[string]string{
	".go":   "go",
	".py":   "python",
	".c":    "c",
	".cc":   "cpp",
	".cpp":  "cpp",
	".java": "java",
	".js":   "javascript",
	".ts":   "typescript",
	".rs":   "rust",
	".kt":   "kotlin",
}

func languageFromExt(path string) string {
	return extLanguages[strings.ToLower(filepath.Ext(path))]
}

func init() {
	submissionsCmd.Flags().StringVar(&submissionQuery.ProblemSlug, "problem", "", "only submissions for this problem")
	submissionsCmd.Flags().StringVar(&submissionQuery.Cursor, "cursor", "", "page cursor from a previous listing")

	submitCmd.Flags().StringVar(&submitLang, "lang", "", "language (inferred from the file extension if omitted)")
	submitCmd.Flags().BoolVar(&submitWatch, "watch", false, "follow the submission until it is judged")

	rootCmd.AddCommand(submissionsCmd)
	rootCmd.AddCommand(submissionCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(abortCmd)
	rootCmd.AddCommand(watchCmd)
}
