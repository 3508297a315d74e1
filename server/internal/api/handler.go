package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/radartrack/radartrack/pkg/types"
	"github.com/radartrack/radartrack/server/internal/alerts"
	"github.com/radartrack/radartrack/server/internal/health"
	"github.com/radartrack/radartrack/server/internal/stats"
)

// Source is the query side of the tracking core.
type Source interface {
	ListActive() []types.Observation
	Get(id int) (types.Observation, bool)
	ListActiveByType(class types.Classification) []types.Observation
	Statistics() stats.Statistics
	Health() health.Report
	ActiveWindow() time.Duration
}

// AlertLister returns current alerts. A nil AlertLister serves an empty list.
type AlertLister interface {
	Active() []*alerts.Alert
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	src    Source
	alerts AlertLister
	router *mux.Router
	now    func() time.Time // injectable for deterministic tests
}

// New creates a Handler wired to src and al and registers all routes.
func New(src Source, al AlertLister) *Handler {
	h := &Handler{src: src, alerts: al, router: mux.NewRouter(), now: time.Now}

	r := h.router.PathPrefix("/api/v1").Subrouter()
	r.HandleFunc("/targets", h.listTargets).Methods(http.MethodGet)
	r.HandleFunc("/targets/active", h.listTargets).Methods(http.MethodGet)
	r.HandleFunc("/targets/type/{type}", h.targetsByType).Methods(http.MethodGet)
	r.HandleFunc("/targets/{id}", h.getTarget).Methods(http.MethodGet)
	r.HandleFunc("/statistics", h.statistics).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/alerts", h.listAlerts).Methods(http.MethodGet)
	r.HandleFunc("/snapshot", h.snapshot).Methods(http.MethodGet)

	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.MethodNotAllowedHandler = notAllowed
	h.router.MethodNotAllowedHandler = notAllowed
	h.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	return h
}

// SetClock replaces the clock used for age and liveness fields.
func (h *Handler) SetClock(now func() time.Time) { h.now = now }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// listTargets returns GET /api/v1/targets and /api/v1/targets/active.
func (h *Handler) listTargets(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, toTargetResponses(h.src.ListActive(), h.now(), h.src.ActiveWindow()))
}

// getTarget returns GET /api/v1/targets/{id}.
func (h *Handler) getTarget(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid target id")
		return
	}
	obs, ok := h.src.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "target not found")
		return
	}
	jsonResp(w, http.StatusOK, toTargetResponse(obs, h.now(), h.src.ActiveWindow()))
}

// targetsByType returns GET /api/v1/targets/type/{type}.
func (h *Handler) targetsByType(w http.ResponseWriter, r *http.Request) {
	class, err := types.ParseClassification(mux.Vars(r)["type"])
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "unknown target type")
		return
	}
	jsonResp(w, http.StatusOK, toTargetResponses(h.src.ListActiveByType(class), h.now(), h.src.ActiveWindow()))
}

// statistics returns GET /api/v1/statistics.
func (h *Handler) statistics(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, h.src.Statistics())
}

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	rep := h.src.Health()
	jsonResp(w, http.StatusOK, HealthResponse{
		Report:      rep,
		Diagnostics: computeDiagnostics(rep, h.src.Statistics()),
	})
}

// listAlerts returns GET /api/v1/alerts.
func (h *Handler) listAlerts(w http.ResponseWriter, _ *http.Request) {
	if h.alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.alerts.Active())
}

// snapshot returns GET /api/v1/snapshot.
func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, BuildSnapshot(h.src, h.now()))
}

// BuildSnapshot assembles the full state document served by /api/v1/snapshot
// and pushed over the WebSocket stream.
func BuildSnapshot(src Source, now time.Time) SnapshotResponse {
	st := src.Statistics()
	rep := src.Health()
	return SnapshotResponse{
		Targets:    toTargetResponses(src.ListActive(), now, src.ActiveWindow()),
		Statistics: st,
		Health: HealthResponse{
			Report:      rep,
			Diagnostics: computeDiagnostics(rep, st),
		},
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
