package api

import (
	"net/http"

	"github.com/nerrad567/aerion-control/internal/audit"
)

// handleListInterfaces lists the host's network interfaces so an operator
// can choose the address the OPC-UA server binds to.
func (s *Server) handleListInterfaces(w http.ResponseWriter, r *http.Request) {
	if s.interfaces == nil {
		writeUnavailable(w, "interface listing is not configured")
		return
	}

	ifaces, err := s.interfaces.List(r.Context())
	if err != nil {
		s.writeDomainError(w, err, "failed to list network interfaces")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interfaces": ifaces, "count": len(ifaces)})
}

// handleRelayStats returns the event relay counters.
func (s *Server) handleRelayStats(w http.ResponseWriter, _ *http.Request) {
	if s.relay == nil {
		writeUnavailable(w, "event relay is not running")
		return
	}
	writeJSON(w, http.StatusOK, s.relay.Snapshot())
}

// handleServerStatus returns the state of the supervised OPC-UA server.
func (s *Server) handleServerStatus(w http.ResponseWriter, _ *http.Request) {
	if s.process == nil {
		writeUnavailable(w, "the OPC-UA server is not managed")
		return
	}

	resp := map[string]any{"process": s.process.Stats()}
	if s.settings != nil {
		resp["port"] = s.settings.Port()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleServerRestart restarts the supervised OPC-UA server, for example
// after its settings were changed. The new process is bound to the API
// server's lifetime, not to the request.
func (s *Server) handleServerRestart(w http.ResponseWriter, r *http.Request) {
	if s.process == nil {
		writeUnavailable(w, "the OPC-UA server is not managed")
		return
	}

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		writeUnavailable(w, "api server not started")
		return
	}

	if err := s.process.Restart(ctx); err != nil {
		s.writeDomainError(w, err, "failed to restart OPC-UA server")
		return
	}
	s.recordAudit(r, audit.ActionRestart, audit.EntityServer, "", nil)
	writeJSON(w, http.StatusAccepted, map[string]any{"process": s.process.Stats()})
}
