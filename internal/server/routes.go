package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"faucetminer/internal/chain"
	"faucetminer/internal/db"
	"faucetminer/internal/ledger"
	"faucetminer/internal/session"
)

const defaultClaimLimit = 10
const maxClaimLimit = 100

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.HandleFunc("POST /claim-history", s.handleRecordClaim)
	mux.HandleFunc("GET /claim-history", s.handleClaimHistory)
	mux.HandleFunc("GET /claim-history/{walletAddress}", s.handleWalletClaims)
	mux.HandleFunc("GET /total-claimed", s.handleTotalClaimed)

	mux.HandleFunc("GET /api/session/status", s.handleSessionStatus)
	mux.HandleFunc("GET /api/session/log", s.handleSessionLog)
	mux.HandleFunc("POST /api/session/start", s.handleSessionStart)
	mux.HandleFunc("POST /api/session/pause", s.handleSessionPause)
	mux.HandleFunc("POST /api/session/resume", s.handleSessionResume)
	mux.HandleFunc("POST /api/session/stop", s.handleSessionStop)
	mux.HandleFunc("POST /api/session/claim", s.handleSessionClaim)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// errorStatus maps the error taxonomy to HTTP codes: user-correctable
// input → 400, state conflicts → 409, upstream failures → 502.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, session.ErrNoDevices),
		errors.Is(err, session.ErrUnknownDevice),
		errors.Is(err, session.ErrAllowanceExhausted):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidState),
		errors.Is(err, session.ErrClaimInFlight),
		errors.Is(err, session.ErrStopNotRequested):
		return http.StatusConflict
	case errors.Is(err, session.ErrClaimRejected),
		errors.Is(err, chain.ErrUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"version":   "0.1.0",
		"node_id":   s.daemon.NodeID(),
		"uptime_ms": s.daemon.Uptime().Milliseconds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	total, count := s.reconciler.AggregateTotalClaimed(r.Context())
	writeJSON(w, map[string]interface{}{
		"node_id":             s.daemon.NodeID(),
		"uptime_ms":           s.daemon.Uptime().Milliseconds(),
		"session":             s.daemon.SessionStatus(),
		"distributor_balance": s.daemon.DistributorBalance(),
		"total_claimed":       total,
		"claim_count":         count,
	})
}

// --- claim ledger ---

type recordClaimRequest struct {
	WalletAddress   string  `json:"walletAddress"`
	Amount          string  `json:"amount"`
	TransactionHash *string `json:"transactionHash"`
}

func (s *Server) handleRecordClaim(w http.ResponseWriter, r *http.Request) {
	var req recordClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	entry, err := s.reconciler.RecordLocalClaim(req.WalletAddress, req.Amount, req.TransactionHash)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, entry)
}

func (s *Server) handleClaimHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultClaimLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxClaimLimit {
		limit = maxClaimLimit
	}

	entries, err := s.reconciler.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleWalletClaims(w http.ResponseWriter, r *http.Request) {
	entries, err := s.reconciler.ListForWallet(r.PathValue("walletAddress"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	if entries == nil {
		entries = []db.Claim{}
	}
	writeJSON(w, entries)
}

func (s *Server) handleTotalClaimed(w http.ResponseWriter, r *http.Request) {
	total, count := s.reconciler.AggregateTotalClaimed(r.Context())
	writeJSON(w, map[string]interface{}{
		"totalClaimed": total,
		"claimCount":   count,
	})
}

// --- session control ---

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.daemon.SessionStatus())
}

func (s *Server) handleSessionLog(w http.ResponseWriter, r *http.Request) {
	events := s.daemon.SessionEvents()
	if events == nil {
		events = []session.Event{}
	}
	writeJSON(w, events)
}

type sessionStartRequest struct {
	Devices []string `json:"devices"`
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.daemon.StartSession(r.Context(), req.Devices); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, s.daemon.SessionStatus())
}

func (s *Server) handleSessionPause(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.PauseSession(); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, s.daemon.SessionStatus())
}

func (s *Server) handleSessionResume(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.ResumeSession(); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, s.daemon.SessionStatus())
}

type sessionStopRequest struct {
	Confirm bool `json:"confirm"`
}

// handleSessionStop implements the two-step destructive stop: the first
// call arms it, a second call with confirm=true discards the session.
func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	var req sessionStopRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if !req.Confirm {
		if err := s.daemon.RequestStopSession(); err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}
		writeJSON(w, map[string]interface{}{
			"confirmation_required": true,
			"warning":               "stopping forfeits all accrued reward",
		})
		return
	}

	if err := s.daemon.ConfirmStopSession(); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, s.daemon.SessionStatus())
}

func (s *Server) handleSessionClaim(w http.ResponseWriter, r *http.Request) {
	txid, err := s.daemon.ClaimSession(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, map[string]interface{}{
		"txid":    txid,
		"session": s.daemon.SessionStatus(),
	})
}
