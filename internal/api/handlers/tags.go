package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promptdeck/promptdeck/internal/prompt"
	"github.com/promptdeck/promptdeck/internal/tag"
)

type TagHandler struct {
	svc *tag.Service
}

func NewTagHandler(svc *tag.Service) *TagHandler {
	return &TagHandler{svc: svc}
}

type setTagRequest struct {
	VersionID uuid.UUID `json:"version_id"`
}

// Set is an upsert: pointing an existing tag at another version
// replaces the pointer and never errors on the name.
func (h *TagHandler) Set(w http.ResponseWriter, r *http.Request) {
	promptID, tagName, ok := tagParams(w, r)
	if !ok {
		return
	}

	var req setTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.VersionID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "version_id required"})
		return
	}

	t, err := h.svc.Set(r.Context(), promptID, tagName, req.VersionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

func (h *TagHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	promptID, tagName, ok := tagParams(w, r)
	if !ok {
		return
	}

	v, err := h.svc.Resolve(r.Context(), promptID, tagName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// Render resolves the tag and renders whatever version it currently
// points at, in one call.
func (h *TagHandler) Render(w http.ResponseWriter, r *http.Request) {
	promptID, tagName, ok := tagParams(w, r)
	if !ok {
		return
	}

	var req prompt.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rendered, err := h.svc.RenderByTag(r.Context(), promptID, tagName, req.Context)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"rendered": rendered})
}

func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	promptID, tagName, ok := tagParams(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), promptID, tagName); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func tagParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, string, bool) {
	promptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return uuid.Nil, "", false
	}
	tagName := chi.URLParam(r, "tagName")
	if tagName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tag name required"})
		return uuid.Nil, "", false
	}
	return promptID, tagName, true
}
