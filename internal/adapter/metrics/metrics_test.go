package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/niksmo/catalog-audit/internal/adapter/metrics"
	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	m := metrics.New(nil)

	completed := domain.Report{
		Status:     domain.RunCompleted,
		FinishedAt: time.Unix(1_800_000_000, 0),
		Scanned:    12,
		Entries: []domain.ProductIssues{{
			ProductID: 1,
			Issues: []domain.Issue{
				{Category: domain.CategoryTranslation},
				{Category: domain.CategoryTranslation},
			},
		}},
		Counts: map[domain.Category]int{domain.CategoryTranslation: 2},
	}
	m.ObserveRun(completed, 3*time.Second)

	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsTotal.WithLabelValues("completed")), 0)
	assert.InDelta(t, 12, testutil.ToFloat64(m.ProductsScanned), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ProductsWithIssues), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Issues.WithLabelValues("TRANSLATION")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Issues.WithLabelValues("METAFIELD")), 0)
	assert.InDelta(t, 1_800_000_000, testutil.ToFloat64(m.LastRunTimestamp), 0)

	m.ObserveRun(domain.Report{Status: domain.RunFailed}, time.Second)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")), 0)
	assert.InDelta(t, 12, testutil.ToFloat64(m.ProductsScanned), 0)
}

func TestObserveMail(t *testing.T) {
	m := metrics.New(nil)
	m.ObserveMail(nil)
	m.ObserveMail(errors.New("535"))
	m.ObserveMail(nil)

	assert.InDelta(t, 2, testutil.ToFloat64(m.MailsTotal.WithLabelValues("sent")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.MailsTotal.WithLabelValues("failed")), 0)
}

func TestHandler(t *testing.T) {
	m := metrics.New(nil)
	m.ObserveMail(nil)

	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.InDelta(t, 1,
		testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("418", "get")), 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `catalog_audit_mails_total{result="sent"} 1`)
}
