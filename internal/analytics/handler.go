package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// Handler serves the aggregated search statistics of this searcher.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats serves GET /api/v1/analytics/stats. The optional top parameter
// (1-100, default 10) sizes the top-query and no-result rankings.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := topQueriesLimit
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTopQueries {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "top must be an integer between 1 and 100",
			}, h.logger)
			return
		}
		top = n
	}
	writeJSON(w, http.StatusOK, h.aggregator.StatsTop(top), h.logger)
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write analytics response", "error", err)
	}
}
