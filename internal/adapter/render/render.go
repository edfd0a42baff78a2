// Package render turns audit reports into text, HTML and spreadsheets.
//
// Rendering is pure: the same report always renders to the same output.
// Issues are grouped by category inside each product and the summary
// counts always come first.
package render

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/niksmo/catalog-audit/internal/core/domain"
)

const timeLayout = "2006-01-02 15:04:05 MST"

type Formatter struct {
	adminURL string
	html     *template.Template
}

// New returns a formatter. adminURL is the merchant admin base URL used to
// link products, e.g. https://admin.shopify.com/store/shop; empty disables links.
func New(adminURL string) Formatter {
	f := Formatter{adminURL: strings.TrimRight(adminURL, "/")}
	f.html = template.Must(
		template.New("report").Funcs(f.funcs()).Parse(htmlTemplate),
	)
	return f
}

// Subject returns a one line summary suitable for a mail subject.
func (f Formatter) Subject(r domain.Report) string {
	switch {
	case r.Failed():
		return "[Catalog audit] run could not complete"
	case r.ProductsWithIssues() == 0:
		return fmt.Sprintf("[Catalog audit] no issues in %d products", r.Scanned)
	default:
		return fmt.Sprintf(
			"[Catalog audit] %d of %d products have issues",
			r.ProductsWithIssues(), r.Scanned,
		)
	}
}

func (f Formatter) productURL(id int64) string {
	if f.adminURL == "" {
		return ""
	}
	return f.adminURL + "/products/" + strconv.FormatInt(id, 10)
}

func (f Formatter) funcs() template.FuncMap {
	return template.FuncMap{
		"productURL": f.productURL,
		"formatTime": formatTime,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}
