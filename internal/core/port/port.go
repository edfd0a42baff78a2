package port

import (
	"context"
	"time"

	"github.com/niksmo/catalog-audit/internal/core/domain"
)

// inbound

type ReportChecker interface {
	RunCheck(context.Context) (domain.Report, error)
}

type ReportReader interface {
	LatestReport(context.Context) (domain.Report, error)
}

type ReportSender interface {
	SendLatestReport(context.Context) error
}

type RunHistoryReader interface {
	History(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

type ScheduledRunner interface {
	RunScheduled(context.Context) error
}

// outbound

type CatalogFetcher interface {
	FetchProducts(context.Context) ([]domain.Product, error)
}

type BrandRuleSource interface {
	BrandRules() []domain.BrandRule
}

// A ReportCache holds the most recent report.
//
// Latest returns [domain.ErrNoReport] until the first Replace.
type ReportCache interface {
	Replace(context.Context, domain.Report) error
	Latest(context.Context) (domain.Report, error)
}

type ReportMailer interface {
	SendReport(context.Context, domain.Report) error
}

type ReportArchive interface {
	SaveRun(context.Context, domain.Report) error
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

type ReportPublisher interface {
	PublishReport(context.Context, domain.Report) error
}

type RunObserver interface {
	ObserveRun(r domain.Report, elapsed time.Duration)
	ObserveMail(err error)
}
