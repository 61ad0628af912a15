package feed

import (
	"encoding/json"
	"net/http"

	"github.com/kilianp07/docfeed/core/stats"
)

// QueueInfo exposes the dispatcher state. feed.Dispatcher satisfies it.
type QueueInfo interface {
	Len() int
	Dropped() uint64
	Running() bool
}

// StatsResponse is the body of GET /api/feed/stats.
type StatsResponse struct {
	QueueLength int            `json:"queue_length"`
	Dropped     uint64         `json:"dropped"`
	Running     bool           `json:"running"`
	Batches     stats.Snapshot `json:"batches"`
}

// NewStatsHandler returns an HTTP handler exposing queue depth and batch
// statistics via GET /api/feed/stats.
func NewStatsHandler(q QueueInfo, c *stats.Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		resp := StatsResponse{
			QueueLength: q.Len(),
			Dropped:     q.Dropped(),
			Running:     q.Running(),
		}
		if c != nil {
			resp.Batches = c.Snapshot()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
