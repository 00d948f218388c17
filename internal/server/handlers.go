package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/rules"
)

type rulesInfo struct {
	Digest        string   `json:"digest"`
	EngineVersion string   `json:"engine_version"`
	OrderTypes    []string `json:"order_types"`
	Rules         int      `json:"rules"`
}

func infoFor(rs *rules.RuleSet) rulesInfo {
	return rulesInfo{
		Digest:        rs.Digest(),
		EngineVersion: ir.EngineVersion,
		OrderTypes:    rs.OrderTypes(),
		Rules:         rs.Len(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"engine_version": ir.EngineVersion,
		"ruleset_digest": s.registry.Current().Digest(),
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, infoFor(s.registry.Current()))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.rulesPath == "" {
		respondError(w, http.StatusConflict, "no rules path configured", nil)
		return
	}

	rs, err := s.registry.ReloadFile(s.rulesPath)
	var cfgErr *rules.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		s.logger.Warn("rules reload rejected", "path", s.rulesPath, "issues", len(cfgErr.Issues))
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "invalid rule configuration",
			"issues": cfgErr.Issues,
		})
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "reload failed", err)
		return
	}

	s.logger.Info("rules reloaded", "path", s.rulesPath, "digest", rs.Digest(), "rules", rs.Len())
	respondJSON(w, http.StatusOK, infoFor(rs))
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var snap ir.Snapshot
	if err := decodeBody(w, r, &snap); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if snap.Subscriber == "" {
		respondError(w, http.StatusBadRequest, "subscriber is required", nil)
		return
	}

	respondJSON(w, http.StatusOK, s.engine.Validate(r.Context(), snap))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var snaps []ir.Snapshot
	if err := decodeBody(w, r, &snaps); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	for i, snap := range snaps {
		if snap.Subscriber == "" {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("snapshot %d: subscriber is required", i), nil)
			return
		}
	}

	save, _ := strconv.ParseBool(r.URL.Query().Get("save"))
	if save && s.store == nil {
		respondError(w, http.StatusConflict, "no database configured", nil)
		return
	}

	run := s.engine.ValidateAll(r.Context(), snaps)
	if save {
		if err := s.store.WriteRun(r.Context(), run); err != nil {
			respondError(w, http.StatusInternalServerError, "save run failed", err)
			return
		}
	}
	respondJSON(w, http.StatusOK, run)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{"error": message}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
