package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sipico/payload-masker/internal/config"
	"github.com/sipico/payload-masker/internal/masking"
	"github.com/sipico/payload-masker/internal/rules"
	"github.com/sipico/payload-masker/internal/storage"
)

// maxPreviewBytes caps POST /api/preview bodies.
const maxPreviewBytes = 1 << 20

// SetLogLevelRequest is the request body for POST /api/loglevel
type SetLogLevelRequest struct {
	Level string `json:"level"`
}

// HandleSetLogLevel changes runtime log level
// POST /api/loglevel
// Body: {"level": "debug|info|warn|error"}
func (h *Handler) HandleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req SetLogLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON")
		return
	}

	level, err := config.ParseLogLevel(req.Level)
	if err != nil || req.Level == "" {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"Invalid level (must be: debug, info, warn, error)")
		return
	}

	h.logLevel.Set(level)
	h.logger.Info("log level changed", "new_level", req.Level)

	writeJSON(w, http.StatusOK, map[string]string{
		"level": req.Level,
	})
}

// HandleListRules returns all stored field rules
// GET /api/rules
func (h *Handler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	list, err := h.storage.ListFieldRules(r.Context())
	if err != nil {
		h.logger.Error("failed to list field rules", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to list rules")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGetRule returns one stored field rule
// GET /api/rules/{id}
func (h *Handler) HandleGetRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}

	rule, err := h.storage.GetFieldRule(r.Context(), id)
	if err != nil {
		h.writeStorageError(w, err, "get")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// HandleCreateRule stores a field rule and reloads the live rules
// POST /api/rules
// Body: {"field_name": "...", "mask_char": "#", "mask_start_index": 0, "mask_end_index": 4, "mask_all": false}
func (h *Handler) HandleCreateRule(w http.ResponseWriter, r *http.Request) {
	cfg, ok := decodeFieldConfig(w, r)
	if !ok {
		return
	}

	rule, err := h.storage.CreateFieldRule(r.Context(), &storage.FieldRule{FieldConfig: cfg})
	if err != nil {
		h.writeStorageError(w, err, "create")
		return
	}

	h.logger.Info("field rule created", "id", rule.ID, "field", rule.FieldName)
	if !h.reload(w, r) {
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// HandleUpdateRule replaces a stored field rule and reloads the live rules
// PUT /api/rules/{id}
func (h *Handler) HandleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	cfg, ok := decodeFieldConfig(w, r)
	if !ok {
		return
	}

	rule, err := h.storage.UpdateFieldRule(r.Context(), &storage.FieldRule{ID: id, FieldConfig: cfg})
	if err != nil {
		h.writeStorageError(w, err, "update")
		return
	}

	h.logger.Info("field rule updated", "id", rule.ID, "field", rule.FieldName)
	if !h.reload(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// HandleDeleteRule deletes a stored field rule and reloads the live rules
// DELETE /api/rules/{id}
func (h *Handler) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}

	if err := h.storage.DeleteFieldRule(r.Context(), id); err != nil {
		h.writeStorageError(w, err, "delete")
		return
	}

	h.logger.Info("field rule deleted", "id", id)
	if !h.reload(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReloadRules rebuilds the live rules from all layers
// POST /api/rules/reload
func (h *Handler) HandleReloadRules(w http.ResponseWriter, r *http.Request) {
	if !h.reload(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, h.rules.Snapshot())
}

// HandleActiveRules returns the merged rule set currently in effect
// GET /api/rules/active
func (h *Handler) HandleActiveRules(w http.ResponseWriter, r *http.Request) {
	snap := h.rules.Snapshot()
	if snap == nil {
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "No rules loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandlePreview masks the posted JSON document with the live rules and returns it.
// The number of masked members is reported in the X-Masked-Fields header.
// POST /api/preview
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPreviewBytes+1))
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Failed to read body")
		return
	}
	if len(body) > maxPreviewBytes {
		WriteError(w, http.StatusRequestEntityTooLarge, ErrCodeInvalidRequest, "Preview body too large")
		return
	}

	res, err := h.masker.MaskJSON(body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidJSON, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Masked-Fields", strconv.Itoa(res.Masked))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body) //nolint:errcheck
}

// reload rebuilds the live rules. On failure it writes the error response and
// returns false.
func (h *Handler) reload(w http.ResponseWriter, r *http.Request) bool {
	if err := h.rules.Reload(r.Context(), rules.SourceAdmin); err != nil {
		WriteErrorWithHint(w, http.StatusInternalServerError, ErrCodeReloadFailed,
			"Masking rules could not be reloaded: "+err.Error(),
			"The previous rules are still active; fix the reported rule and retry POST /api/rules/reload")
		return false
	}
	return true
}

func (h *Handler) writeStorageError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Rule not found")
	case errors.Is(err, storage.ErrDuplicate):
		WriteErrorWithHint(w, http.StatusConflict, ErrCodeDuplicateField,
			"A rule for this field already exists",
			"Update the existing rule with PUT /api/rules/{id}")
	default:
		h.logger.Error("field rule storage failed", "op", op, "error", err)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, "Failed to "+op+" rule")
	}
}

func ruleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid rule ID")
		return 0, false
	}
	return id, true
}

func decodeFieldConfig(w http.ResponseWriter, r *http.Request) (masking.FieldConfig, bool) {
	var cfg masking.FieldConfig
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON: "+err.Error())
		return cfg, false
	}
	if err := cfg.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRule, err.Error())
		return cfg, false
	}
	return cfg, true
}
