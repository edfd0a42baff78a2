package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/niksmo/catalog-audit/internal/core/domain"
)

// HTML renders the report page used both in mail and on the web.
func (f Formatter) HTML(w io.Writer, r domain.Report) error {
	const op = "Formatter.HTML"

	if err := f.html.Execute(w, r); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// HTMLString is a convenience wrapper over [Formatter.HTML].
func (f Formatter) HTMLString(r domain.Report) (string, error) {
	var buf bytes.Buffer
	if err := f.HTML(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// NoReportHTML renders the page shown before the first run.
func (f Formatter) NoReportHTML(w io.Writer) error {
	const op = "Formatter.NoReportHTML"

	if err := f.html.ExecuteTemplate(w, "empty", nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const htmlTemplate = `{{define "style"}}<style>
body { font-family: Arial, sans-serif; }
.summary { background: #f5f5f5; padding: 15px; margin-bottom: 20px; }
.failed { background: #f8d7da; padding: 15px; margin-bottom: 20px; }
.product { border: 1px solid #ddd; margin: 10px 0; padding: 15px; }
.product-title { font-size: 16px; font-weight: bold; color: #333; }
.category { font-weight: bold; color: #856404; margin-top: 8px; }
.issue { background: #fff3cd; padding: 8px; margin: 5px 0; border-left: 3px solid #ffc107; }
</style>{{end}}
{{define "empty"}}<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Catalog audit</title>{{template "style"}}</head>
<body><h1>Catalog audit report</h1><p>No check has run yet.</p></body></html>
{{end}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Catalog audit</title>{{template "style"}}</head>
<body>
<h1>Catalog audit report</h1>
{{if .Failed}}<div class="failed">
<p><strong>Run:</strong> {{.RunID}}</p>
<p><strong>Started:</strong> {{formatTime .StartedAt}}</p>
<p><strong>The run could not complete:</strong> {{.Error}}</p>
</div>
{{else}}<div class="summary">
<p><strong>Run:</strong> {{.RunID}}</p>
<p><strong>Checked at:</strong> {{formatTime .FinishedAt}}</p>
<p><strong>Products scanned:</strong> {{.Scanned}}</p>
<p><strong>Products with issues:</strong> {{.ProductsWithIssues}}</p>
<p><strong>Total issues:</strong> {{.TotalIssues}}</p>
<table>{{range .Summary}}<tr><td>{{.Category}}</td><td>{{.Count}}</td></tr>{{end}}</table>
</div>
{{if .Entries}}<h2>Products with issues</h2>
{{range .Entries}}<div class="product">
<div class="product-title">{{with productURL .ProductID}}<a href="{{.}}" target="_blank">{{end}}{{.Title}}{{if productURL .ProductID}}</a>{{end}}</div>
{{range .GroupByCategory}}<div class="category">{{(index . 0).Category}}</div>
{{range .}}<div class="issue">{{.Description}}{{if .Detail}}<br><small>{{.Detail}}</small>{{end}}</div>
{{end}}{{end}}</div>
{{end}}{{else}}<p>No issues found.</p>
{{end}}{{end}}</body>
</html>
`
