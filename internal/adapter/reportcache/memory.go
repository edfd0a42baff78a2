// Package reportcache keeps the most recent audit report.
//
// The cache has a single owner, the audit service, which replaces the report
// wholesale after every run. Readers never observe a partially written report.
package reportcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/internal/core/port"
)

var _ port.ReportCache = (*Memory)(nil)

// A Memory cache lives as long as the process. It keeps its own copy
// of the report, so callers may modify what they pass in or get back.
type Memory struct {
	mu     sync.RWMutex
	report *domain.Report
}

func NewMemory() *Memory {
	return &Memory{}
}

func (c *Memory) Replace(ctx context.Context, r domain.Report) error {
	const op = "Memory.Replace"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	stored := r.Clone()
	c.mu.Lock()
	c.report = &stored
	c.mu.Unlock()
	return nil
}

func (c *Memory) Latest(ctx context.Context) (domain.Report, error) {
	const op = "Memory.Latest"

	if err := ctx.Err(); err != nil {
		return domain.Report{}, fmt.Errorf("%s: %w", op, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.report == nil {
		return domain.Report{}, fmt.Errorf("%s: %w", op, domain.ErrNoReport)
	}
	return c.report.Clone(), nil
}
