package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/aerion-control/internal/audit"
	"github.com/nerrad567/aerion-control/internal/settings"
)

// SettingRequest is the body of PUT /settings/{key}. Value is text in the
// representation named by Type.
type SettingRequest struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// SettingResponse is a single setting.
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// handleListSettings returns the whole settings document.
func (s *Server) handleListSettings(w http.ResponseWriter, _ *http.Request) {
	if s.settings == nil {
		writeUnavailable(w, "settings are not configured")
		return
	}

	all, err := s.settings.All()
	if err != nil {
		s.writeDomainError(w, err, "failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, all)
}

// handleGetSetting reads one key. The type query parameter selects the
// representation and defaults to String.
func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeUnavailable(w, "settings are not configured")
		return
	}

	t, ok := valueTypeParam(w, r.URL.Query().Get("type"))
	if !ok {
		return
	}

	key := chi.URLParam(r, "key")
	value, err := s.settings.Read(key, t)
	if err != nil {
		s.writeDomainError(w, err, "failed to read setting")
		return
	}
	writeJSON(w, http.StatusOK, SettingResponse{Key: key, Value: value, Type: string(t)})
}

// handlePutSetting creates or replaces one key.
func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeUnavailable(w, "settings are not configured")
		return
	}

	var req SettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	t, ok := valueTypeParam(w, req.Type)
	if !ok {
		return
	}

	key := chi.URLParam(r, "key")
	if err := s.settings.Write(key, req.Value, t); err != nil {
		s.writeDomainError(w, err, "failed to write setting")
		return
	}
	s.recordAudit(r, audit.ActionUpdate, audit.EntitySetting, key, map[string]any{
		"value": req.Value,
		"type":  string(t),
	})
	writeJSON(w, http.StatusOK, SettingResponse{Key: key, Value: req.Value, Type: string(t)})
}

// handleDeleteSetting removes one key.
func (s *Server) handleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeUnavailable(w, "settings are not configured")
		return
	}

	key := chi.URLParam(r, "key")
	if err := s.settings.Delete(key); err != nil {
		s.writeDomainError(w, err, "failed to delete setting")
		return
	}
	s.recordAudit(r, audit.ActionDelete, audit.EntitySetting, key, nil)
	w.WriteHeader(http.StatusNoContent)
}

// valueTypeParam parses a value type, writing a 400 when it is unknown.
// An empty string means String.
func valueTypeParam(w http.ResponseWriter, s string) (settings.ValueType, bool) {
	if s == "" {
		return settings.String, true
	}
	t, err := settings.ParseValueType(s)
	if err != nil {
		writeBadRequest(w, err.Error())
		return "", false
	}
	return t, true
}
