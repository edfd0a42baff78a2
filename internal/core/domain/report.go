package domain

import (
	"maps"
	"slices"
	"time"
)

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

type (
	// A Report is the outcome of one audit run.
	//
	// Entries only hold products with at least one issue, in catalog order.
	// Scanned counts every product the run looked at.
	Report struct {
		RunID      string
		Status     RunStatus
		Error      string
		StartedAt  time.Time
		FinishedAt time.Time
		Scanned    int
		Entries    []ProductIssues
		Counts     map[Category]int
	}

	ProductIssues struct {
		ProductID int64
		Title     string
		Handle    string
		Issues    []Issue
	}

	CategoryCount struct {
		Category Category
		Count    int
	}
)

// Clone returns a copy of r that shares no slices or maps with it.
func (r Report) Clone() Report {
	c := r
	c.Counts = maps.Clone(r.Counts)
	if r.Entries != nil {
		c.Entries = make([]ProductIssues, len(r.Entries))
		for i, e := range r.Entries {
			e.Issues = slices.Clone(e.Issues)
			c.Entries[i] = e
		}
	}
	return c
}

func (r Report) Failed() bool {
	return r.Status == RunFailed
}

func (r Report) ProductsWithIssues() int {
	return len(r.Entries)
}

func (r Report) TotalIssues() (n int) {
	for _, e := range r.Entries {
		n += len(e.Issues)
	}
	return
}

// Summary returns the per category counts in canonical order,
// including categories without issues.
func (r Report) Summary() []CategoryCount {
	s := make([]CategoryCount, len(Categories))
	for i, c := range Categories {
		s[i] = CategoryCount{Category: c, Count: r.Counts[c]}
	}
	return s
}

// GroupByCategory returns the entry issues grouped by category
// in canonical order, omitting empty groups.
func (e ProductIssues) GroupByCategory() [][]Issue {
	var groups [][]Issue
	for _, c := range Categories {
		var g []Issue
		for _, issue := range e.Issues {
			if issue.Category == c {
				g = append(g, issue)
			}
		}
		if len(g) != 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// A RunSummary is the archived headline of a report.
type RunSummary struct {
	RunID              string
	Status             RunStatus
	Error              string
	StartedAt          time.Time
	FinishedAt         time.Time
	Scanned            int
	ProductsWithIssues int
	TotalIssues        int
	Counts             map[Category]int
}

func (r Report) RunSummary() RunSummary {
	return RunSummary{
		RunID:              r.RunID,
		Status:             r.Status,
		Error:              r.Error,
		StartedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
		Scanned:            r.Scanned,
		ProductsWithIssues: r.ProductsWithIssues(),
		TotalIssues:        r.TotalIssues(),
		Counts:             r.Counts,
	}
}
