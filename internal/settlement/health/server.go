package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paywow/settlement/internal/core/domain"
)

// PauseControl gates dispute operations on the running engine.
type PauseControl interface {
	Pause(ctx context.Context, caller string) error
	Unpause(ctx context.Context, caller string) error
}

// FeeWithdrawer moves collected platform fees to the owner.
type FeeWithdrawer interface {
	WithdrawFees(ctx context.Context, caller string, amount int64) error
}

// callerHeader names the identity admin requests act as. The ops port is not
// an authentication boundary; components still enforce their owner checks.
const callerHeader = "X-Settlement-Caller"

// Server provides HTTP endpoints for health monitoring and owner-only admin
// operations against the running engine.
type Server struct {
	monitor    *Monitor
	pauser     PauseControl
	withdrawer FeeWithdrawer
	server     *http.Server
}

// NewServer creates a new ops server.
func NewServer(monitor *Monitor, pauser PauseControl, withdrawer FeeWithdrawer, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		monitor:    monitor,
		pauser:     pauser,
		withdrawer: withdrawer,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/admin/pause", s.handlePause)
	mux.HandleFunc("/admin/unpause", s.handleUnpause)
	mux.HandleFunc("/admin/withdraw-fees", s.handleWithdrawFees)

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())

	response := map[string]string{"status": string(report.Status)}
	w.Header().Set("Content-Type", "application/json")

	if report.Status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.pauser.Pause(r.Context(), r.Header.Get(callerHeader)); err != nil {
		writeAdminError(w, err)
		return
	}
	writeAdminOK(w, "paused")
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.pauser.Unpause(r.Context(), r.Header.Get(callerHeader)); err != nil {
		writeAdminError(w, err)
		return
	}
	writeAdminOK(w, "unpaused")
}

func (s *Server) handleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	if err := s.withdrawer.WithdrawFees(r.Context(), r.Header.Get(callerHeader), amount); err != nil {
		writeAdminError(w, err)
		return
	}
	writeAdminOK(w, "withdrawn")
}

func writeAdminOK(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func writeAdminError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		code = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInsufficientBalance):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrPaused):
		code = http.StatusConflict
	}
	http.Error(w, err.Error(), code)
}
