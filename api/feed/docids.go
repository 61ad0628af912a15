package feed

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/kilianp07/docfeed/core/model"
)

// MaxBodyBytes bounds the size of a POST /feed/docids body.
const MaxBodyBytes = 8 << 20

// Enqueuer receives records. feed.Dispatcher satisfies it.
type Enqueuer interface {
	Enqueue(model.Record)
}

// NewDocIDHandler returns an HTTP handler accepting records via POST /feed/docids.
// The body is a JSON record, a JSON array or plain text with one id per line.
// onAccept, when non-nil, is called with the number of records enqueued.
func NewDocIDHandler(enq Enqueuer, onAccept func(n int)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		recs, err := model.ParseRecords(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, rec := range recs {
			enq.Enqueue(rec)
		}
		if onAccept != nil {
			onAccept(len(recs))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]int{"accepted": len(recs)})
	})
}
