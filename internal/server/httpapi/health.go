package httpapi

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether the backing store is reachable (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

const readyTimeout = 2 * time.Second

type healthResponse struct {
	Status string `json:"status"`
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleReadyz pings the database. With the in-memory store there is nothing to ping.
func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := a.pinger.PingContext(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("readiness: database ping failed")
			WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}
	WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
