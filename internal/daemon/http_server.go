package daemon

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/restockwatch/internal/logfields"
)

// Handler returns the mux served on metrics.listen.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	if d.recorder != nil {
		mux.Handle("/metrics", d.recorder.HTTPHandler())
	}
	mux.HandleFunc("/healthz", d.handleHealth)
	return mux
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := struct {
		Status  string  `json:"status"`
		Runs    int     `json:"runs"`
		LastRun LastRun `json:"last_run"`
	}{Status: "ok", Runs: d.Runs(), LastRun: d.LastRun()}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("Failed to encode health response", logfields.Error(err))
	}
}

func (d *Daemon) startHTTPServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	return srv
}
