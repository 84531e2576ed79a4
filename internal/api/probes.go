package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/aerion-control/internal/device"
	"github.com/nerrad567/aerion-control/internal/probe"
)

// handleProbe checks a device described in the request body without
// registering it.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if s.probes == nil {
		writeUnavailable(w, "probing is not configured")
		return
	}

	var rec device.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	result, err := s.probes.Check(r.Context(), rec)
	if err != nil {
		s.writeDomainError(w, err, "failed to probe device")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleProbeDevice checks a registered device.
func (s *Server) handleProbeDevice(w http.ResponseWriter, r *http.Request) {
	if s.probes == nil {
		writeUnavailable(w, "probing is not configured")
		return
	}

	result, err := s.probes.CheckDevice(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeDomainError(w, err, "failed to probe device")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleProbeAll checks every registered device.
func (s *Server) handleProbeAll(w http.ResponseWriter, r *http.Request) {
	if s.probes == nil {
		writeUnavailable(w, "probing is not configured")
		return
	}

	results, err := s.probes.CheckAll(r.Context())
	if err != nil {
		s.writeDomainError(w, err, "failed to probe devices")
		return
	}

	failed := 0
	for _, res := range results {
		if !res.Outcome.OK() {
			failed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
		"failed":  failed,
	})
}

// handleListProbes returns recent probe results for a device, newest
// first. The limit query parameter caps the count.
func (s *Server) handleListProbes(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "probe history is not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	name := chi.URLParam(r, "name")
	results, err := s.history.List(r.Context(), name, limit)
	if err != nil {
		s.writeDomainError(w, err, "failed to list probe history")
		return
	}
	if results == nil {
		results = []probe.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"device": name, "results": results, "count": len(results)})
}
