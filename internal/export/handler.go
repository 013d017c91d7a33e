package export

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/tracker"
	"github.com/2beens/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// uploads above this size are rejected
const maxImportBytes = 10 << 20

type ImportCSVResponse struct {
	Imported int `json:"imported"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// SetupRoutes registers backup and interchange routes; imports are wrapped
// with adminOnly when set.
func (handler *Handler) SetupRoutes(r *mux.Router, adminOnly func(http.Handler) http.Handler) {
	admin := func(h http.HandlerFunc) http.Handler {
		if adminOnly == nil {
			return h
		}
		return adminOnly(h)
	}

	r.HandleFunc("/backup", handler.handleExportJSON).Methods("GET").Name("export-json")
	r.Handle("/backup", admin(handler.handleImportJSON)).Methods("POST").Name("import-json")
	r.HandleFunc("/export/csv", handler.handleExportCSV).Methods("GET").Name("export-csv")
	r.Handle("/import/csv", admin(handler.handleImportCSV)).Methods("POST").Name("import-csv")
}

func (handler *Handler) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.backup.export")
	defer span.End()

	// buffered, so a failure can still become a proper error response
	var buf bytes.Buffer
	if err := handler.service.ExportJSON(ctx, &buf); err != nil {
		tracker.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, BackupFileName(handler.service.tracker.Today())))
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, buf.Bytes())
}

func (handler *Handler) handleImportJSON(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.backup.import")
	defer span.End()

	err := handler.service.ImportJSON(ctx, http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		if errors.Is(err, ErrInvalidBackup) {
			log.Tracef("import json: %s", err)
			tracker.WriteJSON(w, tracker.Result{Message: err.Error()}, http.StatusBadRequest)
			return
		}
		tracker.WriteError(w, err)
		return
	}
	tracker.WriteJSON(w, tracker.ResultFromError(nil), http.StatusOK)
}

func (handler *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.export.csv")
	defer span.End()

	var buf bytes.Buffer
	if err := handler.service.ExportCSV(ctx, &buf); err != nil {
		tracker.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, CSVFileName))
	pkg.WriteResponseBytesOK(w, pkg.ContentType.CSV, buf.Bytes())
}

func (handler *Handler) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.import.csv")
	defer span.End()

	imported, err := handler.service.ImportCSV(ctx, http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		if errors.Is(err, ErrInvalidCSV) {
			tracker.WriteJSON(w, tracker.Result{Message: err.Error()}, http.StatusBadRequest)
			return
		}
		tracker.WriteError(w, err)
		return
	}
	tracker.WriteJSON(w, ImportCSVResponse{Imported: imported}, http.StatusOK)
}
