package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/aerion-control/internal/audit"
	"github.com/nerrad567/aerion-control/internal/device"
)

// handleListDevices returns every registered device, optionally filtered
// by the type query parameter (Robot or PLC).
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.registry.ListDevices(r.Context())

	if t := r.URL.Query().Get("type"); t != "" {
		filtered := devices[:0]
		for _, d := range devices {
			if string(d.Type) == t {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by name.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.registry.GetDevice(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeDomainError(w, err, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice adds a device to the registry document.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var dev device.Record
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.AddDevice(r.Context(), &dev); err != nil {
		s.writeDomainError(w, err, "failed to create device")
		return
	}

	s.recordAudit(r, audit.ActionCreate, audit.EntityDevice, dev.Name, map[string]any{
		"type":    dev.Type,
		"address": dev.Address(),
	})
	writeJSON(w, http.StatusCreated, dev)
}

// handleDeleteDevice removes a device by name.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.registry.RemoveDevice(r.Context(), name); err != nil {
		s.writeDomainError(w, err, "failed to delete device")
		return
	}
	s.recordAudit(r, audit.ActionDelete, audit.EntityDevice, name, nil)
	w.WriteHeader(http.StatusNoContent)
}

// handleDeviceStats returns device registry statistics.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.GetStats())
}

// handleAddUserNode attaches a user node to a device.
func (s *Server) handleAddUserNode(w http.ResponseWriter, r *http.Request) {
	var node device.UserNode
	if err := json.NewDecoder(r.Body).Decode(&node); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.registry.AddUserNode(r.Context(), name, node); err != nil {
		s.writeDomainError(w, err, "failed to add user node")
		return
	}

	s.recordAudit(r, audit.ActionCreate, audit.EntityUserNode, name, map[string]any{
		"name":   node.Name,
		"parent": node.Parent,
	})

	dev, err := s.registry.GetDevice(r.Context(), name)
	if err != nil {
		s.writeDomainError(w, err, "failed to get device")
		return
	}
	writeJSON(w, http.StatusCreated, dev)
}

// handleRemoveUserNode detaches the user node given by the name and
// parent query parameters.
func (s *Server) handleRemoveUserNode(w http.ResponseWriter, r *http.Request) {
	node := device.UserNode{
		Name:   r.URL.Query().Get("name"),
		Parent: r.URL.Query().Get("parent"),
	}
	if node.Name == "" || node.Parent == "" {
		writeBadRequest(w, "name and parent query parameters are required")
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.registry.RemoveUserNode(r.Context(), name, node); err != nil {
		s.writeDomainError(w, err, "failed to remove user node")
		return
	}
	s.recordAudit(r, audit.ActionDelete, audit.EntityUserNode, name, map[string]any{
		"name":   node.Name,
		"parent": node.Parent,
	})
	w.WriteHeader(http.StatusNoContent)
}
