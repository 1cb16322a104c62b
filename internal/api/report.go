package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/autosign"
	"github.com/andrew11morozovtwo/bot-accounting/internal/report"
)

// ReportHandler serves the warehouse summary.
type ReportHandler struct {
	DB *sqlx.DB
}

// Get handles GET /api/report. With format=text the report is rendered as
// a plain text table.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	rep, err := report.Build(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.Write(w, rep); err != nil {
			slog.Error("writing report", "error", err)
		}
		return
	}
	jsonResponse(w, http.StatusOK, rep)
}

// Sweeper runs one auto-confirmation pass.
type Sweeper interface {
	Sweep(ctx context.Context) (autosign.Result, error)
}

// AutosignHandler triggers the auto-confirmation sweep out of band.
type AutosignHandler struct {
	Sweeper Sweeper
}

// Run handles POST /api/autosign/run.
func (h *AutosignHandler) Run(w http.ResponseWriter, r *http.Request) {
	res, err := h.Sweeper.Sweep(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("manual autosign sweep", "by", CurrentUser(r.Context()).ID,
		"signed", res.Signed, "skipped", res.Skipped, "failed", res.Failed)
	jsonResponse(w, http.StatusOK, res)
}
