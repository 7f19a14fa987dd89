package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/charmbracelet/lipgloss/table"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/ui/style"
)

func renderPlan(w io.Writer, plan *domain.Plan) {
	_, _ = fmt.Fprintln(w, style.Title.Render("Plan"))
	for _, step := range plan.Steps {
		_, _ = fmt.Fprintf(w, "  %s %s\n", style.Muted.Render(style.Arrow), step)
	}
	_, _ = fmt.Fprintln(w, style.Muted.Render(fmt.Sprintf("%d change(s), dry run", plan.Changes())))
}

func renderReport(w io.Writer, report *domain.ExecutionReport) {
	if report == nil {
		return
	}
	for _, res := range report.Results {
		icon, st := statusIcon(res.Status)
		line := fmt.Sprintf("  %s %s", st.Render(icon), res.Step)
		if res.Status != domain.StepCompleted {
			line += " " + style.Muted.Render("("+string(res.Status)+")")
		}
		_, _ = fmt.Fprintln(w, line)
	}

	summary := fmt.Sprintf("%d changed, %d skipped", report.Changed(), len(report.Skipped()))
	if failed, ok := report.Failed(); ok {
		summary += ", failed at " + failed.Step.String()
	}
	if n := len(report.NotRun()); n > 0 {
		summary += fmt.Sprintf(", %d not run", n)
	}
	elapsed := report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)
	_, _ = fmt.Fprintln(w, style.Muted.Render(fmt.Sprintf("%s in %s (transaction %s)", summary, elapsed, report.TransactionID)))
}

func statusIcon(status domain.StepStatus) (string, lipgloss.Style) {
	switch status {
	case domain.StepCompleted:
		return style.Check, style.Success
	case domain.StepSkipped:
		return style.Tilde, style.Muted
	case domain.StepFailed:
		return style.Cross, style.Failure
	default:
		return style.Circle, style.Muted
	}
}

func renderList(w io.Writer, records []domain.InstalledRecord) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		marker := ""
		if rec.Explicit {
			marker = style.Dot
		}
		rows = append(rows, []string{marker, rec.Name, rec.Version.String(), strings.Join(rec.Dependents, ", ")})
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("", "Name", "Version", "Required by").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == -1 {
				return style.Header.PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
	_, _ = fmt.Fprintln(w, t.Render())
}

func renderInfo(w io.Writer, latest *domain.PackageSpec, versions []domain.Version, installed *domain.InstalledRecord) {
	_, _ = fmt.Fprintln(w, style.Title.Render(latest.Name))
	if latest.Description != "" {
		_, _ = fmt.Fprintln(w, latest.Description)
	}

	names := make([]string, len(versions))
	for i, v := range versions {
		names[i] = v.String()
		if installed != nil && installed.Version.Equal(v) {
			names[i] += " " + style.Success.Render(style.Check)
		}
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", style.Header.Render("Versions:"), strings.Join(names, ", "))

	deps := make([]string, len(latest.Dependencies))
	for i, d := range latest.Dependencies {
		deps[i] = d.String()
		if d.Optional {
			deps[i] += " (optional)"
		}
	}
	if len(deps) == 0 {
		deps = []string{"none"}
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", style.Header.Render("Dependencies of "+latest.Version.String()+":"), strings.Join(deps, ", "))

	state := "not installed"
	if installed != nil {
		reason := "as a dependency"
		if installed.Explicit {
			reason = "explicitly"
		}
		state = fmt.Sprintf("%s, %s", installed.Version, reason)
		if len(installed.Dependents) > 0 {
			state += ", required by " + strings.Join(installed.Dependents, ", ")
		}
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", style.Header.Render("Installed:"), state)
}

func renderPrune(w io.Writer, report domain.PruneReport) {
	if report.Removed() == 0 {
		_, _ = fmt.Fprintln(w, "Nothing to clean up.")
		return
	}
	_, _ = fmt.Fprintf(w, "Removed %d staging dir(s), %d payload(s), %d blob(s), %d link(s), freeing %s.\n",
		len(report.StagingDirs), len(report.Payloads), len(report.Blobs), len(report.Links), humanize.IBytes(uint64(report.Bytes)))
}
