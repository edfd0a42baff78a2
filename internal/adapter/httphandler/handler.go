package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/niksmo/catalog-audit/internal/core/domain"
	"github.com/niksmo/catalog-audit/internal/core/port"
	"github.com/niksmo/catalog-audit/internal/core/service"
)

// POST /v1/check (200 OK, 409 Conflict, 502 Bad gateway)
// GET /v1/report, /v1/report.xlsx, / (200 OK, 404 Not found)
// POST /v1/report/email (200 OK, 404 Not found, 502 Bad gateway)
// GET /v1/runs?limit=N (200 OK, 400 Bad request, 404 Not found)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Renderer interface {
	HTML(w io.Writer, r domain.Report) error
	NoReportHTML(w io.Writer) error
	XLSX(domain.Report) ([]byte, error)
}

type CheckHandler struct {
	checker port.ReportChecker
}

func RegisterCheck(mux *http.ServeMux, checker port.ReportChecker) {
	h := CheckHandler{checker}
	mux.HandleFunc("POST /v1/check", h.PostCheck)
}

func (h CheckHandler) PostCheck(w http.ResponseWriter, r *http.Request) {
	const op = "CheckHandler.PostCheck"
	log := slog.With("op", op)

	report, err := h.checker.RunCheck(r.Context())
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		writeJSON(w, http.StatusConflict,
			Status{Status: "busy", Error: "a check is already running"})
		return
	case errors.Is(err, service.ErrFetchFailure):
		writeJSON(w, http.StatusBadGateway, Status{
			Status: string(domain.RunFailed),
			RunID:  report.RunID,
			Error:  report.Error,
		})
		log.Warn("check failed", "runID", report.RunID)
		return
	case err != nil:
		http.Error(w, "check could not run", http.StatusInternalServerError)
		log.Error("failed to run check", "err", err)
		return
	}

	writeJSON(w, http.StatusOK, toReport(report))
	log.Info("check served", "runID", report.RunID)
}

type ReportHandler struct {
	reader   port.ReportReader
	sender   port.ReportSender
	renderer Renderer
}

func RegisterReport(
	mux *http.ServeMux,
	reader port.ReportReader,
	sender port.ReportSender,
	renderer Renderer,
) {
	h := ReportHandler{reader, sender, renderer}
	mux.HandleFunc("GET /v1/report", h.GetReport)
	mux.HandleFunc("GET /v1/report.xlsx", h.GetReportXLSX)
	mux.HandleFunc("POST /v1/report/email", h.PostEmail)
	mux.HandleFunc("GET /{$}", h.GetPage)
}

func (h ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	const op = "ReportHandler.GetReport"

	report, ok := h.latest(w, r, op)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReport(report))
}

func (h ReportHandler) GetReportXLSX(w http.ResponseWriter, r *http.Request) {
	const op = "ReportHandler.GetReportXLSX"
	log := slog.With("op", op)

	report, ok := h.latest(w, r, op)
	if !ok {
		return
	}

	data, err := h.renderer.XLSX(report)
	if err != nil {
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		log.Error("failed to render xlsx", "err", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="catalog-audit-%s.xlsx"`, report.RunID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Error("failed to write response body", "err", err)
	}
}

func (h ReportHandler) PostEmail(w http.ResponseWriter, r *http.Request) {
	const op = "ReportHandler.PostEmail"
	log := slog.With("op", op)

	err := h.sender.SendLatestReport(r.Context())
	switch {
	case errors.Is(err, service.ErrNoReport):
		writeJSON(w, http.StatusNotFound, Status{Status: "empty", Error: "no report yet"})
		return
	case errors.Is(err, service.ErrMailFailure):
		writeJSON(w, http.StatusBadGateway, Status{Status: "failed", Error: "mail delivery failed"})
		log.Error("failed to mail report", "err", err)
		return
	case err != nil:
		http.Error(w, "failed to mail report", http.StatusInternalServerError)
		log.Error("failed to mail report", "err", err)
		return
	}

	writeJSON(w, http.StatusOK, Status{Status: "sent"})
}

func (h ReportHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	const op = "ReportHandler.GetPage"
	log := slog.With("op", op)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	report, err := h.reader.LatestReport(r.Context())
	if errors.Is(err, service.ErrNoReport) {
		if err := h.renderer.NoReportHTML(w); err != nil {
			log.Error("failed to render page", "err", err)
		}
		return
	}
	if err != nil {
		http.Error(w, "failed to read report", http.StatusInternalServerError)
		log.Error("failed to read report", "err", err)
		return
	}

	if err := h.renderer.HTML(w, report); err != nil {
		log.Error("failed to render page", "err", err)
	}
}

func (h ReportHandler) latest(
	w http.ResponseWriter, r *http.Request, op string,
) (domain.Report, bool) {
	report, err := h.reader.LatestReport(r.Context())
	if errors.Is(err, service.ErrNoReport) {
		writeJSON(w, http.StatusNotFound, Status{Status: "empty", Error: "no report yet"})
		return domain.Report{}, false
	}
	if err != nil {
		http.Error(w, "failed to read report", http.StatusInternalServerError)
		slog.Error("failed to read report", "op", op, "err", err)
		return domain.Report{}, false
	}
	return report, true
}

type RunsHandler struct {
	history port.RunHistoryReader
}

func RegisterRuns(mux *http.ServeMux, history port.RunHistoryReader) {
	h := RunsHandler{history}
	mux.HandleFunc("GET /v1/runs", h.GetRuns)
}

func (h RunsHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	const op = "RunsHandler.GetRuns"
	log := slog.With("op", op)

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.history.History(r.Context(), limit)
	if errors.Is(err, service.ErrHistoryDisabled) {
		writeJSON(w, http.StatusNotFound, Status{Status: "disabled", Error: "run history is disabled"})
		return
	}
	if err != nil {
		http.Error(w, "failed to read run history", http.StatusInternalServerError)
		log.Error("failed to read run history", "err", err)
		return
	}

	out := make([]RunSummary, len(runs))
	for i, run := range runs {
		out[i] = toRunSummary(run)
	}
	writeJSON(w, http.StatusOK, out)
}

func RegisterHealth(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Status{Status: "ok"})
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body", "err", err)
	}
}
