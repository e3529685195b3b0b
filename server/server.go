// Package server exposes the analyzer's read-side query interface over
// HTTP/websocket for external consumers (a CPU opponent, an operator tool)
// that don't want to read the chunked strategystore files directly
// (spec.md §6 "Query interface for consumers"). Routing, websocket upgrade,
// and the ping/pong liveness mechanism are adapted from the teacher's
// server/server.go and server/fastview/client.go.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"chairsolver/query"
)

// Server serves the strategy/progress query API rooted at one analysis
// output directory.
type Server struct {
	addr   string
	outDir string
}

// NewServer returns a Server for outDir, not yet listening.
func NewServer(addr, outDir string) *Server {
	return &Server{addr: addr, outDir: outDir}
}

// Router builds the request router, bound to rootCtx for the lifetime of
// any websocket connections it accepts.
func (s *Server) Router(rootCtx context.Context) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/strategy/{hex}", s.handleStrategy).Methods(http.MethodGet)
	r.HandleFunc("/progress", s.handleProgress).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebsocket(rootCtx)).Methods(http.MethodGet)
	return r
}

// Serve blocks, handling requests until the listener errors.
func (s *Server) Serve(ctx context.Context) error {
	if err := http.ListenAndServe(s.addr, s.Router(ctx)); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// handleStrategy serves GET /strategy/{hex}: the solved equilibrium for an
// encoded state, or 404 if unsolved (spec.md §7's "soft condition").
func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	hexStr := mux.Vars(r)["hex"]
	encoded, err := strconv.ParseUint(hexStr, 16, 32)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad state encoding %q: %v", hexStr, err), http.StatusBadRequest)
		return
	}

	strat, err := query.Lookup(s.outDir, uint32(encoded))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if strat == nil {
		http.Error(w, "strategy not found", http.StatusNotFound)
		return
	}

	writeJSON(w, strat)
}

// handleProgress serves GET /progress: the current analysis progress report.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	report, err := query.Progress(s.outDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, report)
}

// handleWebsocket serves GET /ws: a live feed of progress snapshots,
// pushed whenever progress.json changes on disk.
func (s *Server) handleWebsocket(rootCtx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		updates := watchProgress(rootCtx, s.outDir)
		c, err := newClient(updates, w, r)
		if err != nil {
			log.Println("websocket upgrade:", err)
			return
		}
		if err := c.sync(); err != nil {
			log.Println("websocket client:", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("server: encode response:", err)
	}
}
