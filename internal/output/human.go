package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/henrybloomingdale/pubcrawl/internal/article"
)

// --- Styles ---

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	bold   = lipgloss.NewStyle().Bold(true)
	dim    = lipgloss.NewStyle().Faint(true)
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// maxFailureRows caps the failure detail table.
const maxFailureRows = 20

// truncate cuts a string to maxLen characters, appending "…" if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Headers(headers...).
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
			}
			return lipgloss.NewStyle()
		})
}

// --- Crawl ---

// WriteCrawlSummary prints the end-of-run table for a crawl into dir.
func WriteCrawlSummary(w io.Writer, s *Sets, dir string) error {
	fmt.Fprintln(w, bold.Render(fmt.Sprintf("🔬 Processed %d identifiers", s.Total())))
	fmt.Fprintf(w, "   Output: %s\n\n", dim.Render(dir))

	t := newTable("Set", "Count").
		Row("eligible", green.Render(strconv.Itoa(len(s.Eligible)))).
		Row("failed", red.Render(strconv.Itoa(len(s.Failed))))
	if s.LinkFilter {
		t.Row("link-tagged", cyan.Render(strconv.Itoa(len(s.CodeLinked))))
	}
	counts := s.FailureCounts()
	for _, kind := range article.FailureKinds {
		if n := counts[kind]; n > 0 {
			t.Row("  "+string(kind), yellow.Render(strconv.Itoa(n)))
		}
	}
	fmt.Fprintln(w, t.Render())

	if len(s.Failures) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	ft := newTable("PMID", "Kind", "Reason")
	for i, f := range s.Failures {
		if i == maxFailureRows {
			break
		}
		ft.Row(cyan.Render(truncate(f.PMID, 20)), string(f.Kind), truncate(f.Reason, 60))
	}
	fmt.Fprintln(w, ft.Render())
	if n := len(s.Failures) - maxFailureRows; n > 0 {
		fmt.Fprintln(w, dim.Render(fmt.Sprintf("… and %d more, see %s", n, FailedFile)))
	}
	return nil
}

// --- Search ---

// KeywordHits is the ESearch result for one keyword.
type KeywordHits struct {
	Keyword string
	IDs     int
	Err     error
}

// WriteSearchSummary prints per-keyword hit counts and where the ids went.
func WriteSearchSummary(w io.Writer, hits []KeywordHits, unique int, path string) error {
	if len(hits) == 0 {
		fmt.Fprintln(w, "🔬 No keywords searched.")
		return nil
	}

	total := 0
	t := newTable("Keyword", "PMIDs")
	for _, h := range hits {
		total += h.IDs
		count := strconv.Itoa(h.IDs)
		if h.Err != nil {
			count = red.Render("error")
		}
		t.Row(bold.Render(truncate(h.Keyword, 50)), count)
	}

	fmt.Fprintln(w, bold.Render(fmt.Sprintf("🔬 Found %d PMIDs (%d unique)", total, unique)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w)
	fmt.Fprintln(w, dim.Render("💾 Saved to "+path))
	return nil
}
