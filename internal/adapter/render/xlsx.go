package render

import (
	"fmt"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	issuesSheet  = "Issues"
)

// XLSX renders the report as a workbook with a summary and an issues sheet.
func (f Formatter) XLSX(r domain.Report) ([]byte, error) {
	const op = "Formatter.XLSX"

	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	summary := [][]any{
		{"Run", r.RunID},
		{"Status", string(r.Status)},
		{"Started", formatTime(r.StartedAt)},
		{"Finished", formatTime(r.FinishedAt)},
		{"Products scanned", r.Scanned},
		{"Products with issues", r.ProductsWithIssues()},
		{"Total issues", r.TotalIssues()},
	}
	if r.Failed() {
		summary = append(summary, []any{"Error", r.Error})
	}
	for _, c := range r.Summary() {
		summary = append(summary, []any{string(c.Category), c.Count})
	}
	if err := writeRows(wb, summarySheet, summary); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := wb.NewSheet(issuesSheet); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows := [][]any{
		{"Product ID", "Title", "Handle", "Admin URL", "Category", "Issue", "Detail"},
	}
	for _, e := range r.Entries {
		for _, group := range e.GroupByCategory() {
			for _, v := range group {
				rows = append(rows, []any{
					e.ProductID, e.Title, e.Handle, f.productURL(e.ProductID),
					string(v.Category), v.Description, v.Detail,
				})
			}
		}
	}
	if err := writeRows(wb, issuesSheet, rows); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf.Bytes(), nil
}

func writeRows(wb *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
