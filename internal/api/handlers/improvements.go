package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promptdeck/promptdeck/internal/identity"
	"github.com/promptdeck/promptdeck/internal/improve"
	"github.com/promptdeck/promptdeck/internal/queue"
)

type ImprovementHandler struct {
	svc   *improve.Service
	queue *queue.Client
}

func NewImprovementHandler(svc *improve.Service, q *queue.Client) *ImprovementHandler {
	return &ImprovementHandler{svc: svc, queue: q}
}

// Analyze runs the feedback analysis inline and returns the stored
// pending suggestions. The LLM call is bounded by the configured
// timeout, so slow providers fail the request instead of hanging it.
func (h *ImprovementHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	promptID, versionID, ok := versionParams(w, r)
	if !ok {
		return
	}

	suggestions, err := h.svc.Analyze(r.Context(), promptID, versionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// AnalyzeAsync enqueues the analysis for the background worker and
// returns immediately. Suggestions appear via the list endpoint once
// the task completes.
func (h *ImprovementHandler) AnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	promptID, versionID, ok := versionParams(w, r)
	if !ok {
		return
	}

	err := h.queue.EnqueueAnalyzeFeedback(queue.AnalyzeFeedbackPayload{
		PromptID:  promptID.String(),
		VersionID: versionID.String(),
		CallerID:  identity.IDFromContext(r.Context()).String(),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *ImprovementHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	promptID, versionID, ok := versionParams(w, r)
	if !ok {
		return
	}

	suggestions, err := h.svc.ListForVersion(r.Context(), promptID, versionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

func (h *ImprovementHandler) Accept(w http.ResponseWriter, r *http.Request) {
	suggestionID, ok := suggestionParam(w, r)
	if !ok {
		return
	}

	var req improve.AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Label == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "label required"})
		return
	}

	version, err := h.svc.Accept(r.Context(), suggestionID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, version)
}

func (h *ImprovementHandler) Decline(w http.ResponseWriter, r *http.Request) {
	suggestionID, ok := suggestionParam(w, r)
	if !ok {
		return
	}

	var req improve.DeclineRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	sg, err := h.svc.Decline(r.Context(), suggestionID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sg)
}

func suggestionParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	suggestionID, err := uuid.Parse(chi.URLParam(r, "suggestionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid suggestion ID"})
		return uuid.Nil, false
	}
	return suggestionID, true
}
