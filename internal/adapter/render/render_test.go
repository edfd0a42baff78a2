package render_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/niksmo/catalog-audit/internal/adapter/render"
	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const adminURL = "https://admin.shopify.com/store/shop/"

func report() domain.Report {
	return domain.Report{
		RunID:      "run-7",
		Status:     domain.RunCompleted,
		StartedAt:  time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 10, 15, 9, 2, 0, 0, time.UTC),
		Scanned:    10,
		Entries: []domain.ProductIssues{{
			ProductID: 42,
			Title:     "YOKUMOKU クッキー",
			Handle:    "yokumoku-cookie",
			Issues: []domain.Issue{
				{Category: domain.CategorySalesSetting, Description: "product is a draft", Detail: "status: draft"},
				{Category: domain.CategoryRequiredField, Description: "weight is missing or zero", Detail: "variant: Default"},
				{Category: domain.CategorySalesSetting, Description: "inventory tracking is enabled", Detail: "variants: Default"},
			},
		}},
		Counts: map[domain.Category]int{
			domain.CategoryRequiredField: 1,
			domain.CategorySalesSetting:  2,
		},
	}
}

func TestText(t *testing.T) {
	f := render.New(adminURL)

	t.Run("GroupsByCategory", func(t *testing.T) {
		out := f.Text(report())

		assert.Contains(t, out, "Run: run-7")
		assert.Contains(t, out, "Products scanned")
		assert.Contains(t, out, "https://admin.shopify.com/store/shop/products/42")

		summaryAt := strings.Index(out, "Total issues")
		required := strings.Index(out, "  REQUIRED_FIELD\n")
		sales := strings.Index(out, "  SALES_SETTING\n")
		require.Positive(t, summaryAt)
		require.Positive(t, required)
		require.Positive(t, sales)
		assert.Less(t, summaryAt, required)
		assert.Less(t, required, sales)
		assert.Equal(t, 1, strings.Count(out, "  SALES_SETTING\n"))
	})

	t.Run("Deterministic", func(t *testing.T) {
		assert.Equal(t, f.Text(report()), f.Text(report()))
	})

	t.Run("Clean", func(t *testing.T) {
		r := report()
		r.Entries = nil
		r.Counts = nil
		out := f.Text(r)
		assert.Contains(t, out, "No issues found.")
	})

	t.Run("Failed", func(t *testing.T) {
		r := domain.Report{RunID: "x", Status: domain.RunFailed, Error: "status 503"}
		out := f.Text(r)
		assert.Contains(t, out, "could not complete: status 503")
		assert.NotContains(t, out, "No issues found.")
	})
}

func TestHTML(t *testing.T) {
	f := render.New(adminURL)

	t.Run("Report", func(t *testing.T) {
		out, err := f.HTMLString(report())
		require.NoError(t, err)
		assert.Contains(t, out, `href="https://admin.shopify.com/store/shop/products/42"`)
		assert.Contains(t, out, "YOKUMOKU クッキー")
		assert.Contains(t, out, "<strong>Products scanned:</strong> 10")
		assert.Less(t,
			strings.Index(out, "REQUIRED_FIELD</div>"),
			strings.Index(out, "SALES_SETTING</div>"))
	})

	t.Run("EscapesDetail", func(t *testing.T) {
		r := report()
		r.Entries[0].Title = "<script>alert(1)</script>"
		out, err := f.HTMLString(r)
		require.NoError(t, err)
		assert.NotContains(t, out, "<script>alert(1)</script>")
	})

	t.Run("NoLinksWithoutAdminURL", func(t *testing.T) {
		out, err := render.New("").HTMLString(report())
		require.NoError(t, err)
		assert.NotContains(t, out, "<a href")
	})

	t.Run("Failed", func(t *testing.T) {
		r := domain.Report{RunID: "x", Status: domain.RunFailed, Error: "status 503"}
		out, err := f.HTMLString(r)
		require.NoError(t, err)
		assert.Contains(t, out, "could not complete:</strong> status 503")
	})

	t.Run("NoReport", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.NoReportHTML(&buf))
		assert.Contains(t, buf.String(), "No check has run yet.")
	})
}

func TestSubject(t *testing.T) {
	f := render.New("")
	assert.Equal(t, "[Catalog audit] 1 of 10 products have issues", f.Subject(report()))

	clean := report()
	clean.Entries = nil
	assert.Equal(t, "[Catalog audit] no issues in 10 products", f.Subject(clean))

	failed := domain.Report{Status: domain.RunFailed}
	assert.Equal(t, "[Catalog audit] run could not complete", f.Subject(failed))
}

func TestXLSX(t *testing.T) {
	f := render.New(adminURL)

	data, err := f.XLSX(report())
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Summary", "Issues"}, wb.GetSheetList())

	v, err := wb.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "10", v)

	rows, err := wb.GetRows("Issues")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "REQUIRED_FIELD", rows[1][4])
	assert.Equal(t, "SALES_SETTING", rows[2][4])
	assert.Equal(t, "SALES_SETTING", rows[3][4])
}
