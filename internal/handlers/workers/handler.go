package workers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
	"gitlab.com/fbworkers.net/internal/core/services/discovery"
	"gitlab.com/fbworkers.net/internal/core/services/worker"
	"gitlab.com/fbworkers.net/internal/domain"
	"gitlab.com/fbworkers.net/internal/handlers"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

type ApiHandler struct {
	Discovery   discovery.IDiscoveryService
	LocalWorker worker.ILocalWorkerService
	// History may be nil when no database is configured.
	History secondary.DiscoveryHistoryRepository
	logger  primary.Logger
}

func NewHandler(
	discoveryService discovery.IDiscoveryService,
	localWorker worker.ILocalWorkerService,
	history secondary.DiscoveryHistoryRepository,
	logger primary.Logger,
) *ApiHandler {
	return &ApiHandler{
		Discovery:   discoveryService,
		LocalWorker: localWorker,
		History:     history,
		logger:      logger,
	}
}

func (api *ApiHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/workers", api.GetWorkers).Methods("GET")
	r.HandleFunc("/api/workers/count", api.GetWorkerCount).Methods("GET")
	r.HandleFunc("/api/workers/names", api.GetWorkerNames).Methods("GET")
	r.HandleFunc("/api/workers/local", api.GetLocalWorker).Methods("GET")
	r.HandleFunc("/api/workers/published", api.GetPublishedWorkers).Methods("GET")
	r.HandleFunc("/api/workers/history", api.GetHistory).Methods("GET")
	r.HandleFunc("/api/workers/refresh", api.Refresh).Methods("POST")
}

type CycleResponse struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

type WorkersResponse struct {
	Count   int                    `json:"count"`
	Workers []*domain.WorkerRecord `json:"workers"`
	Cycle   *CycleResponse         `json:"cycle,omitempty"`
}

func cycleResponse(c *domain.DiscoveryCycle) *CycleResponse {
	if c == nil {
		return nil
	}
	resp := &CycleResponse{
		ID:         c.ID.String(),
		Source:     string(c.Source),
		StartedAt:  c.StartedAt,
		DurationMs: c.Duration.Milliseconds(),
	}
	if c.Err != nil {
		resp.Error = c.Err.Error()
	}
	return resp
}

func (api *ApiHandler) GetWorkers(w http.ResponseWriter, r *http.Request) {
	workers := api.Discovery.CurrentWorkers()
	handlers.ResponseWithJson(w, http.StatusOK, WorkersResponse{
		Count:   len(workers),
		Workers: workers,
		Cycle:   cycleResponse(api.Discovery.LastCycle()),
	})
}

func (api *ApiHandler) GetWorkerCount(w http.ResponseWriter, r *http.Request) {
	handlers.ResponseWithJson(w, http.StatusOK, map[string]int{"count": api.Discovery.WorkerCount()})
}

func (api *ApiHandler) GetWorkerNames(w http.ResponseWriter, r *http.Request) {
	handlers.ResponseWithJson(w, http.StatusOK, map[string][]string{"names": api.Discovery.WorkerNames()})
}

func (api *ApiHandler) GetLocalWorker(w http.ResponseWriter, r *http.Request) {
	local, ok := api.LocalWorker.LocalWorker()
	if !ok {
		handlers.ResponseError(w, "Local worker not discovered", http.StatusNotFound)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, local)
}

func (api *ApiHandler) GetPublishedWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := api.LocalWorker.PublishedWorkers(r.Context())
	if err != nil {
		handlers.ResponseError(w, "Failed to get published workers", http.StatusInternalServerError)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, WorkersResponse{Count: len(workers), Workers: workers})
}

func (api *ApiHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if api.History == nil {
		handlers.ResponseError(w, "Discovery history not configured", http.StatusNotFound)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxHistoryLimit {
			handlers.ResponseError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	var filter domain.CycleFilter
	switch source := domain.DiscoverySource(r.URL.Query().Get("source")); source {
	case "", domain.SourceNone, domain.SourceCoordinator, domain.SourceBrokerage:
		filter.Source = source
	default:
		handlers.ResponseError(w, "Invalid source", http.StatusBadRequest)
		return
	}
	if raw := r.URL.Query().Get("failed"); raw != "" {
		failed, err := strconv.ParseBool(raw)
		if err != nil {
			handlers.ResponseError(w, "Invalid failed flag", http.StatusBadRequest)
			return
		}
		filter.FailedOnly = failed
	}

	cycles, err := api.History.GetRecentCycles(r.Context(), filter, limit)
	if err != nil {
		api.logger.Error("Failed to get discovery history", "error", err)
		handlers.ResponseError(w, "Failed to get discovery history", http.StatusInternalServerError)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{"cycles": cycles})
}

// Refresh runs a discovery cycle in the request. It answers 409 when a cycle
// is already running.
func (api *ApiHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cycle := api.Discovery.Refresh(r.Context())
	if cycle == nil {
		handlers.ResponseError(w, "Discovery already running", http.StatusConflict)
		return
	}
	workers := cycle.Workers.Records()
	handlers.ResponseWithJson(w, http.StatusOK, WorkersResponse{
		Count:   len(workers),
		Workers: workers,
		Cycle:   cycleResponse(cycle),
	})
}
