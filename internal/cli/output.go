package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/vietddude/judgewatch/internal/core/domain"
	"github.com/vietddude/judgewatch/internal/infra/cache"
)

var (
	acceptedColor = color.New(color.FgGreen, color.Bold)
	rejectedColor = color.New(color.FgRed, color.Bold)
	pendingColor  = color.New(color.FgYellow)
	unknownColor  = color.New(color.FgHiBlack)
	noticeColor   = color.New(color.FgCyan)
)

// statusLabel renders a status with its verdict colour.
func statusLabel(s domain.Status) string {
	label := s.Label()
	switch {
	case s == domain.StatusAccepted:
		return acceptedColor.Sprint(label)
	case s == domain.StatusUnknown:
		return unknownColor.Sprint(label)
	case s.IsTerminal():
		return rejectedColor.Sprint(label)
	default:
		return pendingColor.Sprint(label)
	}
}

// printSource tells the user the data shown is an offline fallback.
func printSource(w io.Writer, src cache.Source) {
	if src.Degraded() {
		fmt.Fprintln(w, noticeColor.Sprint("(cached, offline)"))
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(w io.Writer, headers []string, data [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printProblems(w io.Writer, page *domain.ProblemPage) error {
	var data [][]string
	for _, p := range page.Items {
		solved := ""
		if p.Solved {
			solved = acceptedColor.Sprint("yes")
		}
		data = append(data, []string{p.Slug, p.Title, p.Difficulty, strings.Join(p.Tags, ", "), solved})
	}
	if err := renderTable(w, []string{"Slug", "Title", "Difficulty", "Tags", "Solved"}, data); err != nil {
		return err
	}
	printCursor(w, page.NextCursor)
	return nil
}

func printProblem(w io.Writer, p *domain.Problem) {
	fmt.Fprintf(w, "%s (%s)\n", p.Title, p.Slug)
	if p.Difficulty != "" {
		fmt.Fprintf(w, "Difficulty: %s\n", p.Difficulty)
	}
	if p.TimeLimitMS > 0 || p.MemoryMB > 0 {
		fmt.Fprintf(w, "Limits: %d ms, %d MB\n", p.TimeLimitMS, p.MemoryMB)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	if p.Content != "" {
		fmt.Fprintf(w, "\n%s\n", p.Content)
	}
}

func printSubmissions(w io.Writer, page *domain.SubmissionPage) error {
	var data [][]string
	for _, s := range page.Items {
		data = append(data, []string{
			s.ID,
			s.ProblemSlug,
			s.Language,
			statusLabel(s.Status),
			formatRuntime(s.RuntimeMS),
			formatTime(s.CreatedAt),
		})
	}
	if err := renderTable(w, []string{"ID", "Problem", "Language", "Status", "Runtime", "Submitted"}, data); err != nil {
		return err
	}
	printCursor(w, page.NextCursor)
	return nil
}

func printSubmission(w io.Writer, s *domain.Submission) {
	fmt.Fprintf(w, "Submission %s: %s\n", s.ID, statusLabel(s.Status))
	fmt.Fprintf(w, "Problem: %s  Language: %s\n", s.ProblemSlug, s.Language)
	if s.RuntimeMS > 0 || s.MemoryKB > 0 {
		fmt.Fprintf(w, "Runtime: %s  Memory: %d KB\n", formatRuntime(s.RuntimeMS), s.MemoryKB)
	}
	if s.Score > 0 {
		fmt.Fprintf(w, "Score: %s\n", strconv.FormatFloat(s.Score, 'f', -1, 64))
	}
	if s.Message != "" {
		fmt.Fprintf(w, "\n%s\n", s.Message)
	}
}

func printProfile(w io.Writer, p *domain.Profile) error {
	data := [][]string{{
		p.Username,
		strconv.FormatFloat(p.Rating, 'f', 0, 64),
		strconv.Itoa(p.Solved),
		strconv.Itoa(p.Submissions),
	}}
	return renderTable(w, []string{"User", "Rating", "Solved", "Submissions"}, data)
}

func printEvent(w io.Writer, ev domain.StatusEvent) {
	switch ev.Kind {
	case domain.EventTimedOut:
		fmt.Fprintf(w, "%s: still %s, stopped waiting\n", ev.SubmissionID, statusLabel(ev.From))
	default:
		fmt.Fprintf(w, "%s: %s -> %s\n", ev.SubmissionID, statusLabel(ev.From), statusLabel(ev.To))
	}
}

func printCursor(w io.Writer, cursor string) {
	if cursor != "" {
		fmt.Fprintf(w, "more: --cursor %s\n", cursor)
	}
}

func formatRuntime(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
