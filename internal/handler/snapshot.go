package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/web3-frozen/miner-dashboard/internal/monitor"
)

type snapshotResponse struct {
	monitor.Snapshot
	Version    uint64  `json:"version"`
	AgeSeconds float64 `json:"age_seconds"`
	Stale      bool    `json:"stale"`
}

// Snapshot serves the current dashboard state. A snapshot that was never
// updated, or is older than staleAfter, is flagged stale.
func Snapshot(store *monitor.Store, staleAfter time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := store.Version()
		snap := store.Snapshot()
		age := snap.Age(time.Now())

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snapshotResponse{
			Snapshot:   snap,
			Version:    version,
			AgeSeconds: age.Seconds(),
			Stale:      snap.LastUpdate.IsZero() || age > staleAfter,
		})
	}
}
