package service

import (
	"github.com/niksmo/catalog-audit/internal/core/checker"
	"github.com/niksmo/catalog-audit/internal/core/domain"
)

// A Runner evaluates a whole catalog in a single sequential pass.
type Runner struct {
	checker checker.Checker
}

func NewRunner(c checker.Checker) Runner {
	return Runner{c}
}

// Run checks every product and returns a completed report.
//
// Products without issues are counted in Scanned but left out of Entries.
// Entries keep the input order. The caller stamps run ID and timestamps.
func (r Runner) Run(
	products []domain.Product, rules []domain.BrandRule,
) domain.Report {
	report := domain.Report{
		Status:  domain.RunCompleted,
		Scanned: len(products),
		Counts:  make(map[domain.Category]int, len(domain.Categories)),
	}

	for _, p := range products {
		issues := r.checker.Check(p, rules)
		if len(issues) == 0 {
			continue
		}
		for _, v := range issues {
			report.Counts[v.Category]++
		}
		report.Entries = append(report.Entries, domain.ProductIssues{
			ProductID: p.ID,
			Title:     p.Title,
			Handle:    p.Handle,
			Issues:    issues,
		})
	}

	return report
}
