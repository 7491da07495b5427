package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promptdeck/promptdeck/internal/prompt"
)

type VersionHandler struct {
	svc *prompt.Service
}

func NewVersionHandler(svc *prompt.Service) *VersionHandler {
	return &VersionHandler{svc: svc}
}

func (h *VersionHandler) Create(w http.ResponseWriter, r *http.Request) {
	promptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	var req prompt.NewVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content required"})
		return
	}

	v, err := h.svc.CreateVersion(r.Context(), promptID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, v)
}

func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	promptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	versions, err := h.svc.ListVersions(r.Context(), promptID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"versions": versions, "count": len(versions)})
}

func (h *VersionHandler) Get(w http.ResponseWriter, r *http.Request) {
	promptID, versionID, ok := versionParams(w, r)
	if !ok {
		return
	}

	v, err := h.svc.GetVersion(r.Context(), promptID, versionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// Latest returns the version with the numerically greatest label,
// which is not necessarily the most recently created one.
func (h *VersionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	promptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	v, err := h.svc.Latest(r.Context(), promptID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (h *VersionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	promptID, versionID, ok := versionParams(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteVersion(r.Context(), promptID, versionID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VersionHandler) Render(w http.ResponseWriter, r *http.Request) {
	promptID, versionID, ok := versionParams(w, r)
	if !ok {
		return
	}

	var req prompt.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rendered, err := h.svc.RenderVersion(r.Context(), promptID, versionID, req.Context)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"rendered": rendered})
}

func versionParams(w http.ResponseWriter, r *http.Request) (promptID, versionID uuid.UUID, ok bool) {
	promptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return uuid.Nil, uuid.Nil, false
	}
	versionID, err = uuid.Parse(chi.URLParam(r, "versionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid version ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return promptID, versionID, true
}
