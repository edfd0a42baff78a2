package render

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/niksmo/catalog-audit/internal/core/domain"
)

// Text renders the report as plain text.
func (f Formatter) Text(r domain.Report) string {
	var b strings.Builder

	b.WriteString("Catalog audit report\n")
	fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	fmt.Fprintf(&b, "Started: %s\n", formatTime(r.StartedAt))
	fmt.Fprintf(&b, "Finished: %s\n", formatTime(r.FinishedAt))
	fmt.Fprintf(&b, "Status: %s\n\n", r.Status)

	if r.Failed() {
		fmt.Fprintf(&b, "The run could not complete: %s\n", r.Error)
		return b.String()
	}

	b.WriteString(summaryTable(r))
	b.WriteString("\n\n")

	if len(r.Entries) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}

	for _, e := range r.Entries {
		fmt.Fprintf(&b, "[%d] %s", e.ProductID, e.Title)
		if url := f.productURL(e.ProductID); url != "" {
			fmt.Fprintf(&b, " <%s>", url)
		}
		b.WriteString("\n")

		for _, group := range e.GroupByCategory() {
			fmt.Fprintf(&b, "  %s\n", group[0].Category)
			for _, v := range group {
				b.WriteString("    - " + v.Description)
				if v.Detail != "" {
					b.WriteString(": " + v.Detail)
				}
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func summaryTable(r domain.Report) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Summary", "Count"})
	t.AppendRow(table.Row{"Products scanned", r.Scanned})
	t.AppendRow(table.Row{"Products with issues", r.ProductsWithIssues()})
	t.AppendRow(table.Row{"Total issues", r.TotalIssues()})
	t.AppendSeparator()
	for _, c := range r.Summary() {
		t.AppendRow(table.Row{string(c.Category), c.Count})
	}
	return t.Render()
}
