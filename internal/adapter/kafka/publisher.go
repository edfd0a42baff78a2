package kafka

import (
	"context"
	"errors"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/internal/core/port"
)

var _ port.ReportPublisher = (*Publisher)(nil)

type (
	issuesProducer interface {
		ProduceIssues(context.Context, domain.Report) error
		Close()
	}

	summaryEmitter interface {
		EmitSummary(context.Context, domain.Report) error
		Close()
	}
)

// A Publisher announces a finished report: issue events first,
// then the run summary. The summary goes out even when issues fail.
type Publisher struct {
	issues    issuesProducer
	summaries summaryEmitter
}

func NewPublisher(issues issuesProducer, summaries summaryEmitter) *Publisher {
	return &Publisher{issues, summaries}
}

func (p *Publisher) PublishReport(ctx context.Context, r domain.Report) error {
	const op = "Publisher.PublishReport"

	issuesErr := p.issues.ProduceIssues(ctx, r)
	summaryErr := p.summaries.EmitSummary(ctx, r)

	if err := errors.Join(issuesErr, summaryErr); err != nil {
		return opErr(err, op)
	}
	return nil
}

func (p *Publisher) Close() {
	p.issues.Close()
	p.summaries.Close()
}
