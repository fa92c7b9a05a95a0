package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/web3-frozen/miner-dashboard/internal/monitor"
)

type cycleRunner interface {
	RunCycle(ctx context.Context) error
}

// RunCycle triggers an immediate aggregation cycle and waits for it.
func RunCycle(engine cycleRunner, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := engine.RunCycle(r.Context())
		switch {
		case errors.Is(err, monitor.ErrCycleInFlight):
			http.Error(w, `{"error":"cycle already in flight"}`, http.StatusConflict)
			return
		case err != nil:
			logger.Error("manual cycle failed", "error", err)
			http.Error(w, `{"error":"cycle failed"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"completed"}`))
	}
}
