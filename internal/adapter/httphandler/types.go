package httphandler

import (
	"time"

	"github.com/niksmo/catalog-audit/internal/core/domain"
)

type (
	Report struct {
		RunID      string          `json:"run_id"`
		Status     string          `json:"status"`
		Error      string          `json:"error,omitempty"`
		StartedAt  time.Time       `json:"started_at"`
		FinishedAt time.Time       `json:"finished_at"`
		Summary    Summary         `json:"summary"`
		Products   []ProductIssues `json:"products"`
	}

	Summary struct {
		Scanned            int             `json:"products_scanned"`
		ProductsWithIssues int             `json:"products_with_issues"`
		TotalIssues        int             `json:"total_issues"`
		Categories         []CategoryCount `json:"categories"`
	}

	CategoryCount struct {
		Category string `json:"category"`
		Count    int    `json:"count"`
	}

	ProductIssues struct {
		ProductID int64   `json:"product_id"`
		Title     string  `json:"title"`
		Handle    string  `json:"handle"`
		Issues    []Issue `json:"issues"`
	}

	Issue struct {
		Category    string `json:"category"`
		Description string `json:"description"`
		Detail      string `json:"detail,omitempty"`
	}
)

type RunSummary struct {
	RunID              string         `json:"run_id"`
	Status             string         `json:"status"`
	Error              string         `json:"error,omitempty"`
	StartedAt          time.Time      `json:"started_at"`
	FinishedAt         time.Time      `json:"finished_at"`
	Scanned            int            `json:"products_scanned"`
	ProductsWithIssues int            `json:"products_with_issues"`
	TotalIssues        int            `json:"total_issues"`
	Counts             map[string]int `json:"counts"`
}

type Status struct {
	Status string `json:"status"`
	RunID  string `json:"run_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

func toReport(r domain.Report) Report {
	out := Report{
		RunID:      r.RunID,
		Status:     string(r.Status),
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Summary: Summary{
			Scanned:            r.Scanned,
			ProductsWithIssues: r.ProductsWithIssues(),
			TotalIssues:        r.TotalIssues(),
		},
		Products: make([]ProductIssues, 0, len(r.Entries)),
	}

	for _, c := range r.Summary() {
		out.Summary.Categories = append(out.Summary.Categories,
			CategoryCount{Category: string(c.Category), Count: c.Count})
	}

	for _, e := range r.Entries {
		p := ProductIssues{
			ProductID: e.ProductID,
			Title:     e.Title,
			Handle:    e.Handle,
			Issues:    make([]Issue, len(e.Issues)),
		}
		for i, issue := range e.Issues {
			p.Issues[i] = Issue{
				Category:    string(issue.Category),
				Description: issue.Description,
				Detail:      issue.Detail,
			}
		}
		out.Products = append(out.Products, p)
	}
	return out
}

func toRunSummary(s domain.RunSummary) RunSummary {
	counts := make(map[string]int, len(s.Counts))
	for c, n := range s.Counts {
		counts[string(c)] = n
	}
	return RunSummary{
		RunID:              s.RunID,
		Status:             string(s.Status),
		Error:              s.Error,
		StartedAt:          s.StartedAt,
		FinishedAt:         s.FinishedAt,
		Scanned:            s.Scanned,
		ProductsWithIssues: s.ProductsWithIssues,
		TotalIssues:        s.TotalIssues,
		Counts:             counts,
	}
}
