package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles the readiness gate, used during graceful shutdown.
func SetReady(v bool) { ready.Store(v) }

// IsReady reports whether the service accepts traffic.
func IsReady() bool { return ready.Load() }

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingLedger(ctx context.Context, timeout time.Duration) error
	PingData(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker       Checker
	LedgerTimeout time.Duration
	DataTimeout   time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !IsReady() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	ledgerStatus := "ok"
	if err := h.Checker.PingLedger(ctx, h.ledgerTimeout()); err != nil {
		ledgerStatus = err.Error()
	}
	dataStatus := "ok"
	if err := h.Checker.PingData(ctx, h.dataTimeout()); err != nil {
		dataStatus = err.Error()
	}
	status := map[string]string{
		"ledger": ledgerStatus,
		"data":   dataStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	if ledgerStatus != "ok" || dataStatus != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) ledgerTimeout() time.Duration {
	if h.LedgerTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.LedgerTimeout
}

func (h Handler) dataTimeout() time.Duration {
	if h.DataTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.DataTimeout
}
