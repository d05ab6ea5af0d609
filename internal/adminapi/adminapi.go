// Package adminapi exposes the operator-facing HTTP surface: a
// TOTP-gated forced resync, ledger status lookups, and a WebSocket
// progress feed. It never touches the synchronizer's core paths
// directly, only the ledger and progress hub the run wires in.
package adminapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"scsync/internal/ledger"
	"scsync/internal/priceformat"
	"scsync/internal/progress"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves the admin HTTP surface.
type Server struct {
	ledger     *ledger.Ledger
	hub        *progress.Hub
	totpSecret string
	mux        *http.ServeMux
}

// New builds a Server. totpSecret is the base32 TOTP secret operators'
// authenticator apps are enrolled with; an empty secret disables the
// resync endpoint entirely (it always returns 403).
func New(l *ledger.Ledger, hub *progress.Hub, totpSecret string) *Server {
	s := &Server{ledger: l, hub: hub, totpSecret: totpSecret, mux: http.NewServeMux()}
	s.mux.HandleFunc("/admin/resync", s.handleResync)
	s.mux.HandleFunc("/admin/status/", s.handleStatus)
	s.mux.HandleFunc("/progress", s.handleProgress)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type resyncRequest struct {
	Contract string `json:"contract"`
	Date     string `json:"date"`
	TOTPCode string `json:"totp_code"`
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req resyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Contract == "" || req.Date == "" {
		http.Error(w, "contract and date are required", http.StatusBadRequest)
		return
	}

	if s.totpSecret == "" {
		http.Error(w, "resync disabled: no TOTP secret configured", http.StatusForbidden)
		return
	}
	if ok := totp.Validate(req.TOTPCode, s.totpSecret); !ok {
		http.Error(w, "invalid TOTP code", http.StatusUnauthorized)
		return
	}

	if err := s.ledger.Clear(req.Contract, req.Date); err != nil {
		log.Printf("adminapi: clear ledger for %s/%s: %v", req.Contract, req.Date, err)
		http.Error(w, "failed to clear ledger entry", http.StatusInternalServerError)
		return
	}

	log.Printf("adminapi: forced resync accepted for %s/%s", req.Contract, req.Date)
	w.WriteHeader(http.StatusAccepted)
}

// handleStatus serves GET /admin/status/{contract}/{date}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/admin/status/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		http.Error(w, "expected /admin/status/{contract}/{date}", http.StatusBadRequest)
		return
	}
	contract, date := parts[0], parts[1]

	entry, ok, err := s.ledger.Get(contract, date)
	if err != nil {
		http.Error(w, "ledger lookup failed", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no ledger entry for that contract/day", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{
		Contract:     contract,
		TradeDate:    date,
		Status:       entry.Status.String(),
		ManifestHash: entry.ManifestHash,
		LastPrice:    priceformat.Format(entry.LastPrice),
		FinishedAt:   entry.FinishedAt.Unix(),
	})
}

type statusResponse struct {
	Contract     string `json:"contract"`
	TradeDate    string `json:"trade_date"`
	Status       string `json:"status"`
	ManifestHash uint64 `json:"manifest_hash"`
	LastPrice    string `json:"last_price"`
	FinishedAt   int64  `json:"finished_at_unix"`
}

// handleProgress upgrades to a WebSocket connection streaming progress
// frames from the run in flight, if any.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("adminapi: websocket upgrade: %v", err)
		return
	}
	s.hub.Register(conn)
}
