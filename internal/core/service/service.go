package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/internal/core/port"
)

var (
	ErrFetchFailure    = errors.New("catalog fetch failed")
	ErrMailFailure     = errors.New("report mail failed")
	ErrRunInProgress   = errors.New("check is already running")
	ErrHistoryDisabled = errors.New("run history is disabled")
	ErrNoReport        = domain.ErrNoReport
)

var (
	_ port.ReportChecker    = (*Service)(nil)
	_ port.ReportReader     = (*Service)(nil)
	_ port.ReportSender     = (*Service)(nil)
	_ port.RunHistoryReader = (*Service)(nil)
	_ port.ScheduledRunner  = (*Service)(nil)
)

type Opt func(*Service)

// ArchiveOpt stores a summary of every run.
func ArchiveOpt(a port.ReportArchive) Opt {
	return func(s *Service) { s.archive = a }
}

// PublisherOpt announces completed reports to downstream consumers.
func PublisherOpt(p port.ReportPublisher) Opt {
	return func(s *Service) { s.publisher = p }
}

func ObserverOpt(o port.RunObserver) Opt {
	return func(s *Service) { s.observer = o }
}

// SkipCleanMailOpt makes scheduled runs skip the mail
// when the catalog has no issues.
func SkipCleanMailOpt(skip bool) Opt {
	return func(s *Service) { s.skipCleanMail = skip }
}

func ClockOpt(now func() time.Time) Opt {
	return func(s *Service) { s.now = now }
}

func RunIDOpt(fn func() string) Opt {
	return func(s *Service) { s.newRunID = fn }
}

type Service struct {
	catalog   port.CatalogFetcher
	rules     port.BrandRuleSource
	runner    Runner
	cache     port.ReportCache
	mailer    port.ReportMailer
	archive   port.ReportArchive
	publisher port.ReportPublisher
	observer  port.RunObserver

	skipCleanMail bool
	now           func() time.Time
	newRunID      func() string

	running atomic.Bool
}

func New(
	catalog port.CatalogFetcher,
	rules port.BrandRuleSource,
	runner Runner,
	cache port.ReportCache,
	mailer port.ReportMailer,
	opts ...Opt,
) *Service {
	s := &Service{
		catalog:  catalog,
		rules:    rules,
		runner:   runner,
		cache:    cache,
		mailer:   mailer,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCheck fetches the catalog, evaluates it and replaces the cached report.
//
// A failed fetch still replaces the cache with a failed report so readers can
// tell "no issues" from "could not run"; the error wraps [ErrFetchFailure].
// Only one check runs at a time, a concurrent call gets [ErrRunInProgress].
func (s *Service) RunCheck(ctx context.Context) (domain.Report, error) {
	const op = "Service.RunCheck"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return domain.Report{}, fmt.Errorf("%s: %w", op, err)
	}

	if !s.running.CompareAndSwap(false, true) {
		return domain.Report{}, fmt.Errorf("%s: %w", op, ErrRunInProgress)
	}
	defer s.running.Store(false)

	runID := s.newRunID()
	startedAt := s.now()
	log = log.With("runID", runID)
	log.Info("check started")

	var report domain.Report
	products, fetchErr := s.catalog.FetchProducts(ctx)
	if fetchErr != nil {
		report = domain.Report{
			Status: domain.RunFailed,
			Error:  fetchErr.Error(),
			Counts: map[domain.Category]int{},
		}
	} else {
		report = s.runner.Run(products, s.rules.BrandRules())
	}

	report.RunID = runID
	report.StartedAt = startedAt
	report.FinishedAt = s.now()

	if s.observer != nil {
		s.observer.ObserveRun(report, report.FinishedAt.Sub(startedAt))
	}

	// The outcome is recorded even when the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)

	cacheErr := s.cache.Replace(persistCtx, report)
	if cacheErr != nil {
		log.Error("failed to cache report", "err", cacheErr)
	}

	s.archiveRun(persistCtx, report)

	if fetchErr != nil {
		log.Error("check failed", "err", fetchErr)
		return report, fmt.Errorf("%s: %w: %w",
			op, ErrFetchFailure, errors.Join(fetchErr, cacheErr))
	}

	if cacheErr != nil {
		return report, fmt.Errorf("%s: failed to cache report: %w", op, cacheErr)
	}

	s.publish(persistCtx, report)

	log.Info(
		"check completed",
		"scanned", report.Scanned,
		"productsWithIssues", report.ProductsWithIssues(),
		"issues", report.TotalIssues(),
	)
	return report, nil
}

func (s *Service) LatestReport(ctx context.Context) (domain.Report, error) {
	const op = "Service.LatestReport"

	if err := ctx.Err(); err != nil {
		return domain.Report{}, fmt.Errorf("%s: %w", op, err)
	}

	report, err := s.cache.Latest(ctx)
	if err != nil {
		return domain.Report{}, fmt.Errorf("%s: %w", op, err)
	}
	return report, nil
}

// SendLatestReport mails the cached report.
//
// A mail failure wraps [ErrMailFailure]; the report stays cached.
func (s *Service) SendLatestReport(ctx context.Context) error {
	const op = "Service.SendLatestReport"

	report, err := s.LatestReport(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.send(ctx, report); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RunScheduled is the entry point for the recurring trigger.
func (s *Service) RunScheduled(ctx context.Context) error {
	const op = "Service.RunScheduled"
	log := slog.With("op", op)

	report, runErr := s.RunCheck(ctx)
	if runErr != nil && !errors.Is(runErr, ErrFetchFailure) {
		return fmt.Errorf("%s: %w", op, runErr)
	}

	clean := !report.Failed() && report.ProductsWithIssues() == 0
	if clean && s.skipCleanMail {
		log.Info("no issues found, mail skipped", "runID", report.RunID)
		return nil
	}

	if err := s.send(ctx, report); err != nil {
		return fmt.Errorf("%s: %w", op, errors.Join(runErr, err))
	}

	if runErr != nil {
		return fmt.Errorf("%s: %w", op, runErr)
	}
	return nil
}

func (s *Service) History(
	ctx context.Context, limit int,
) ([]domain.RunSummary, error) {
	const op = "Service.History"

	if s.archive == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrHistoryDisabled)
	}

	runs, err := s.archive.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return runs, nil
}

func (s *Service) send(ctx context.Context, report domain.Report) error {
	const op = "Service.send"
	log := slog.With("op", op, "runID", report.RunID)

	err := s.mailer.SendReport(ctx, report)
	if s.observer != nil {
		s.observer.ObserveMail(err)
	}
	if err != nil {
		log.Error("failed to send report", "err", err)
		return fmt.Errorf("%w: %w", ErrMailFailure, err)
	}

	log.Info("report sent")
	return nil
}

func (s *Service) archiveRun(ctx context.Context, report domain.Report) {
	const op = "Service.archiveRun"

	if s.archive == nil {
		return
	}
	if err := s.archive.SaveRun(ctx, report); err != nil {
		slog.Error("failed to archive run", "op", op, "runID", report.RunID, "err", err)
	}
}

func (s *Service) publish(ctx context.Context, report domain.Report) {
	const op = "Service.publish"

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReport(ctx, report); err != nil {
		slog.Error("failed to publish report", "op", op, "runID", report.RunID, "err", err)
	}
}
