package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type AddExerciseRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type SetFieldRequest struct {
	Value int `json:"value"`
}

type CounterResponse struct {
	ID    string `json:"id"`
	Field Field  `json:"field"`
	Value int    `json:"value"`
}

type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{
		tracker: tracker,
	}
}

// SetupRoutes registers the tracker API. rateLimit wraps mutating routes and
// adminOnly wraps destructive ones, either may be nil.
func (handler *Handler) SetupRoutes(r *mux.Router, rateLimit, adminOnly func(http.Handler) http.Handler) {
	limited := wrapWith(rateLimit)
	admin := func(h http.HandlerFunc) http.Handler {
		return limited(wrapWith(adminOnly)(h))
	}

	r.HandleFunc("/exercises", handler.handleList).Methods("GET").Name("list-exercises")
	r.Handle("/exercises", limited(http.HandlerFunc(handler.handleAdd))).Methods("POST").Name("add-exercise")
	r.HandleFunc("/exercises/{id}", handler.handleGet).Methods("GET").Name("get-exercise")
	r.Handle("/exercises/{id}", limited(http.HandlerFunc(handler.handleUpdate))).Methods("PUT").Name("update-exercise")
	r.Handle("/exercises/{id}", limited(http.HandlerFunc(handler.handleRemove))).Methods("DELETE").Name("remove-exercise")
	r.HandleFunc("/exercises/{id}/history", handler.handleHistory).Methods("GET").Name("exercise-history")
	r.HandleFunc("/exercises/{id}/stats", handler.handleExerciseStats).Methods("GET").Name("exercise-stats")
	r.Handle("/exercises/{id}/{field}/increment", limited(http.HandlerFunc(handler.handleIncrement))).Methods("POST").Name("increment")
	r.Handle("/exercises/{id}/{field}/decrement", limited(http.HandlerFunc(handler.handleDecrement))).Methods("POST").Name("decrement")
	r.Handle("/exercises/{id}/{field}", limited(http.HandlerFunc(handler.handleSetField))).Methods("PUT").Name("set-field")

	r.HandleFunc("/stats", handler.handleConsolidatedStats).Methods("GET").Name("stats")
	r.HandleFunc("/stats/today", handler.handleToday).Methods("GET").Name("stats-today")

	r.HandleFunc("/settings", handler.handleGetSettings).Methods("GET").Name("get-settings")
	r.Handle("/settings", limited(http.HandlerFunc(handler.handleSaveSettings))).Methods("PUT").Name("save-settings")

	r.Handle("/sample", admin(handler.handleLoadSample)).Methods("POST").Name("load-sample")
	r.Handle("/data", admin(handler.handleClear)).Methods("DELETE").Name("clear-data")
	r.HandleFunc("/usage", handler.handleUsage).Methods("GET").Name("usage")
}

func wrapWith(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(h http.Handler) http.Handler { return h }
	}
	return mw
}

// StatusFromError maps tracker errors to http status codes.
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrExerciseNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrProtectedExercise):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON marshals v and writes it with the given status.
func WriteJSON(w http.ResponseWriter, v any, statusCode int) {
	respJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("failed to marshal response: %s", err)
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, statusCode)
}

// WriteError writes a failed Result with the status matching err.
func WriteError(w http.ResponseWriter, err error) {
	statusCode := StatusFromError(err)
	if statusCode == http.StatusInternalServerError {
		log.Errorf("request failed: %s", err)
	}
	WriteJSON(w, ResultFromError(err), statusCode)
}

func windowDaysParam(r *http.Request) (int, error) {
	daysStr := r.URL.Query().Get("days")
	if daysStr == "" {
		return DefaultWindowDays, nil
	}
	days, err := strconv.Atoi(daysStr)
	if err != nil || days < 0 {
		return 0, errors.New("invalid days param")
	}
	return days, nil
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	exercises, err := handler.tracker.ListExercises(ctx)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, exercises, http.StatusOK)
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.get")
	defer span.End()

	ex, err := handler.tracker.GetExercise(ctx, mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, ex, http.StatusOK)
}

func (handler *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.add")
	defer span.End()

	var req AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("add exercise, unmarshal json params: %s", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := handler.tracker.AddExercise(ctx, req.Name, req.Color, req.Icon)
	if err != nil {
		WriteError(w, err)
		return
	}

	log.Debugf("new exercise added: %s", id)
	WriteJSON(w, AddExerciseResult(id, nil), http.StatusCreated)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.update")
	defer span.End()

	var req AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ex, err := handler.tracker.UpdateExerciseDetails(ctx, mux.Vars(r)["id"], req.Name, req.Color, req.Icon)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, ex, http.StatusOK)
}

func (handler *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.remove")
	defer span.End()

	if err := handler.tracker.RemoveExercise(ctx, mux.Vars(r)["id"]); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, ResultFromError(nil), http.StatusOK)
}

func (handler *Handler) handleIncrement(w http.ResponseWriter, r *http.Request) {
	handler.handleCounterStep(w, r, handler.tracker.Increment)
}

func (handler *Handler) handleDecrement(w http.ResponseWriter, r *http.Request) {
	handler.handleCounterStep(w, r, handler.tracker.Decrement)
}

func (handler *Handler) handleCounterStep(
	w http.ResponseWriter,
	r *http.Request,
	step func(ctx context.Context, id string, field Field, amount int) (int, error),
) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.counter")
	defer span.End()

	vars := mux.Vars(r)
	field, err := ParseField(vars["field"])
	if err != nil {
		WriteError(w, err)
		return
	}

	amount := 1
	if amountStr := r.URL.Query().Get("amount"); amountStr != "" {
		amount, err = strconv.Atoi(amountStr)
		if err != nil {
			WriteError(w, ErrInvalidAmount)
			return
		}
	}

	value, err := step(ctx, vars["id"], field, amount)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, CounterResponse{ID: vars["id"], Field: field, Value: value}, http.StatusOK)
}

func (handler *Handler) handleSetField(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.set_field")
	defer span.End()

	vars := mux.Vars(r)
	field, err := ParseField(vars["field"])
	if err != nil {
		WriteError(w, err)
		return
	}

	var req SetFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	value, err := handler.tracker.SetField(ctx, vars["id"], field, req.Value)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, CounterResponse{ID: vars["id"], Field: field, Value: value}, http.StatusOK)
}

func (handler *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.history")
	defer span.End()

	days, err := windowDaysParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := handler.tracker.QueryHistory(ctx, mux.Vars(r)["id"], days)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, records, http.StatusOK)
}

func (handler *Handler) handleExerciseStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.stats")
	defer span.End()

	days, err := windowDaysParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := handler.tracker.ExerciseStatistics(ctx, mux.Vars(r)["id"], days)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, stats, http.StatusOK)
}

func (handler *Handler) handleConsolidatedStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.stats.consolidated")
	defer span.End()

	days, err := windowDaysParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := handler.tracker.ConsolidatedStatistics(ctx, days)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, stats, http.StatusOK)
}

func (handler *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	totals, err := handler.tracker.TodayTotals(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, totals, http.StatusOK)
}

func (handler *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := handler.tracker.GetSettings(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, settings, http.StatusOK)
}

func (handler *Handler) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var settings Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if settings.Version == "" {
		settings.Version = SchemaVersion
	}

	if err := handler.tracker.SaveSettings(r.Context(), settings); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, settings, http.StatusOK)
}

func (handler *Handler) handleLoadSample(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.data.sample")
	defer span.End()

	if err := handler.tracker.LoadSampleData(ctx); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, ResultFromError(nil), http.StatusOK)
}

func (handler *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.data.clear")
	defer span.End()

	if err := handler.tracker.ClearAllData(ctx); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, ResultFromError(nil), http.StatusOK)
}

func (handler *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := handler.tracker.StorageUsage(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, usage, http.StatusOK)
}
