package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/nferreyra/cerbero/internal/cerbero/service"
	"github.com/nferreyra/cerbero/internal/cerbero/store"
	"github.com/nferreyra/cerbero/internal/cerbero/types"
	"github.com/nferreyra/cerbero/internal/logging"
	"github.com/nferreyra/cerbero/internal/realtime"
)

type Dependencies struct {
	Logger logging.Logger
	Addr   string

	Engine *service.DecisionEngine
	Ledger store.LedgerStore
	Hub    *realtime.Hub

	// ScanSecret authenticates hardware scanners (X-Scan-Secret header);
	// JWTSecret authenticates dashboard callers (HS256 bearer token).
	// With neither configured the scan surface is open — dev only.
	ScanSecret string
	JWTSecret  string

	// Shared token bucket across all scan callers.
	ScanRatePerSec float64
	ScanBurst      int
}

type Server struct {
	httpServer *http.Server
	logger     logging.Logger
	mux        *http.ServeMux

	engine  *service.DecisionEngine
	ledger  store.LedgerStore
	hub     *realtime.Hub
	limiter *rate.Limiter

	scanSecret string
	jwtSecret  []byte
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	ratePerSec := d.ScanRatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	burst := d.ScanBurst
	if burst <= 0 {
		burst = 20
	}

	s := &Server{
		logger:     d.Logger,
		mux:        mux,
		engine:     d.Engine,
		ledger:     d.Ledger,
		hub:        d.Hub,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		scanSecret: d.ScanSecret,
	}
	if d.JWTSecret != "" {
		s.jwtSecret = []byte(d.JWTSecret)
	}

	mux.HandleFunc("POST /v1/scan", s.requireAuth(s.rateLimited(s.handleScan)))
	mux.HandleFunc("GET /v1/inside", s.requireAuth(s.handleInside))
	mux.HandleFunc("GET /ws/access", s.requireAuth(s.handleSubscribe))
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	decision, err := s.engine.Scan(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidExternalID) {
			writeError(w, http.StatusBadRequest, "invalid_external_id", err.Error())
			return
		}
		s.logger.Error(r.Context(), "scan error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	// Denials are 200s: the decision itself is the payload.  The exception
	// is an internal failure, which still carries a full decision but
	// signals the degraded server.
	status := http.StatusOK
	if decision.ReasonCode == types.ReasonInternalError {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, decision)
}

func (s *Server) handleInside(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledger.ListOpenEntries(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "inside listing error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	if entries == nil {
		entries = []types.InsideEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(entries),
		"inside": entries,
	})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	s.hub.Handle(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": msg,
	})
}
