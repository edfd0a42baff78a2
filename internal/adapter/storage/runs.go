package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/internal/core/port"
)

var _ port.ReportArchive = (*RunsRepository)(nil)

// RunsRepository archives run headlines and their issues.
type RunsRepository struct {
	sqldb sqldb
}

func NewRunsRepository(sqldb sqldb) RunsRepository {
	return RunsRepository{sqldb}
}

func (r RunsRepository) SaveRun(
	ctx context.Context, report domain.Report,
) (saveErr error) {
	const op = "RunsRepository.SaveRun"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	counts, err := json.Marshal(report.Counts)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if saveErr == nil {
			if err := tx.Commit(); err != nil {
				saveErr = fmt.Errorf("%s: failed to commit: %w", op, err)
			}
			return
		}

		if err := tx.Rollback(); err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	runQuery := `
		INSERT INTO audit_runs (
			run_id, status, error, started_at, finished_at,
			scanned, products_with_issues, total_issues, counts
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err = tx.ExecContext(ctx, runQuery,
		report.RunID, string(report.Status), report.Error,
		report.StartedAt, report.FinishedAt,
		report.Scanned, report.ProductsWithIssues(), report.TotalIssues(),
		string(counts),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to insert run: %w", op, err)
	}

	if len(report.Entries) == 0 {
		return nil
	}

	issueQuery := `
		INSERT INTO audit_issues (
			run_id, product_id, product_title, category, description, detail
		)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	stmt, err := tx.PrepareContext(ctx, issueQuery)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare stmt: %w", op, err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			log.Error("failed to close prepared stmt", "err", err)
		}
	}()

	for _, e := range report.Entries {
		for _, issue := range e.Issues {
			_, err := stmt.ExecContext(ctx,
				report.RunID, e.ProductID, e.Title,
				string(issue.Category), issue.Description, issue.Detail,
			)
			if err != nil {
				return fmt.Errorf("%s: failed to insert issue: %w", op, err)
			}
		}
	}

	return nil
}

// ListRuns returns the most recent runs first.
func (r RunsRepository) ListRuns(
	ctx context.Context, limit int,
) ([]domain.RunSummary, error) {
	const op = "RunsRepository.ListRuns"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		SELECT
			run_id, status, error, started_at, finished_at,
			scanned, products_with_issues, total_issues, counts
		FROM audit_runs
		ORDER BY started_at DESC
		LIMIT $1;`

	rows, err := r.sqldb.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	runs := []domain.RunSummary{}
	for rows.Next() {
		var (
			v      domain.RunSummary
			status string
			counts []byte
		)
		err := rows.Scan(
			&v.RunID, &status, &v.Error, &v.StartedAt, &v.FinishedAt,
			&v.Scanned, &v.ProductsWithIssues, &v.TotalIssues, &counts,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		v.Status = domain.RunStatus(status)

		if err := json.Unmarshal(counts, &v.Counts); err != nil {
			return nil, fmt.Errorf("%s: invalid counts: %w", op, err)
		}
		// Rows archived before a category was retired may still carry it.
		maps.DeleteFunc(v.Counts, func(c domain.Category, _ int) bool {
			return !c.Valid()
		})
		runs = append(runs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return runs, nil
}
