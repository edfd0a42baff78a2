package storage_test

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/niksmo/catalog-audit/internal/adapter/storage"
	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	insertRun   = regexp.QuoteMeta("INSERT INTO audit_runs")
	insertIssue = regexp.QuoteMeta("INSERT INTO audit_issues")
	selectRuns  = regexp.QuoteMeta("FROM audit_runs")
)

func report() domain.Report {
	return domain.Report{
		RunID:      "run-1",
		Status:     domain.RunCompleted,
		StartedAt:  time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 10, 15, 9, 1, 0, 0, time.UTC),
		Scanned:    5,
		Entries: []domain.ProductIssues{{
			ProductID: 11,
			Title:     "YOKUMOKU Cigare",
			Issues: []domain.Issue{
				{Category: domain.CategoryMetafield, Description: "product link metafield is empty", Detail: "missing custom.link"},
				{Category: domain.CategorySalesSetting, Description: "product is a draft", Detail: "status: draft"},
			},
		}},
		Counts: map[domain.Category]int{
			domain.CategoryMetafield:    1,
			domain.CategorySalesSetting: 1,
		},
	}
}

func TestSaveRun(t *testing.T) {
	t.Run("WithIssues", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(insertRun).
			WithArgs("run-1", "completed", "", sqlmock.AnyArg(), sqlmock.AnyArg(),
				5, 1, 2, `{"METAFIELD":1,"SALES_SETTING":1}`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		prep := mock.ExpectPrepare(insertIssue)
		prep.ExpectExec().
			WithArgs("run-1", int64(11), "YOKUMOKU Cigare", "METAFIELD",
				"product link metafield is empty", "missing custom.link").
			WillReturnResult(sqlmock.NewResult(1, 1))
		prep.ExpectExec().
			WithArgs("run-1", int64(11), "YOKUMOKU Cigare", "SALES_SETTING",
				"product is a draft", "status: draft").
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		repo := storage.NewRunsRepository(db)
		require.NoError(t, repo.SaveRun(t.Context(), report()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FailedRun", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		failed := domain.Report{
			RunID:  "run-2",
			Status: domain.RunFailed,
			Error:  "status 503",
			Counts: map[domain.Category]int{},
		}

		mock.ExpectBegin()
		mock.ExpectExec(insertRun).
			WithArgs("run-2", "failed", "status 503", sqlmock.AnyArg(), sqlmock.AnyArg(),
				0, 0, 0, `{}`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := storage.NewRunsRepository(db)
		require.NoError(t, repo.SaveRun(t.Context(), failed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		execErr := errors.New("duplicate key")
		mock.ExpectBegin()
		mock.ExpectExec(insertRun).WillReturnError(execErr)
		mock.ExpectRollback()

		repo := storage.NewRunsRepository(db)
		err = repo.SaveRun(t.Context(), report())
		assert.ErrorIs(t, err, execErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListRuns(t *testing.T) {
	t.Run("Rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		started := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows([]string{
			"run_id", "status", "error", "started_at", "finished_at",
			"scanned", "products_with_issues", "total_issues", "counts",
		}).
			AddRow("run-2", "failed", "status 503", started.Add(24*time.Hour),
				started.Add(24*time.Hour), 0, 0, 0, []byte(`{}`)).
			AddRow("run-1", "completed", "", started, started.Add(time.Minute),
				5, 1, 2, []byte(`{"METAFIELD":1,"SALES_SETTING":1,"RETIRED":3}`))
		mock.ExpectQuery(selectRuns).WithArgs(10).WillReturnRows(rows)

		repo := storage.NewRunsRepository(db)
		runs, err := repo.ListRuns(t.Context(), 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)

		assert.Equal(t, "run-2", runs[0].RunID)
		assert.Equal(t, domain.RunFailed, runs[0].Status)
		assert.Equal(t, "status 503", runs[0].Error)

		assert.Equal(t, domain.RunCompleted, runs[1].Status)
		assert.Equal(t, 2, runs[1].TotalIssues)
		assert.Equal(t, map[domain.Category]int{
			domain.CategoryMetafield:    1,
			domain.CategorySalesSetting: 1,
		}, runs[1].Counts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(selectRuns).WithArgs(5).
			WillReturnRows(sqlmock.NewRows([]string{"run_id"}))

		runs, err := storage.NewRunsRepository(db).ListRuns(t.Context(), 5)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}
