package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promptdeck/promptdeck/internal/feedback"
)

type FeedbackHandler struct {
	svc *feedback.Service
}

func NewFeedbackHandler(svc *feedback.Service) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

func (h *FeedbackHandler) Add(w http.ResponseWriter, r *http.Request) {
	promptID, versionID, ok := versionParams(w, r)
	if !ok {
		return
	}

	var req feedback.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fb, err := h.svc.Add(r.Context(), promptID, versionID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, fb)
}

func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	promptID, versionID, ok := versionParams(w, r)
	if !ok {
		return
	}

	entries, err := h.svc.List(r.Context(), promptID, versionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"feedback": entries,
		"count":    len(entries),
	})
}

func (h *FeedbackHandler) Update(w http.ResponseWriter, r *http.Request) {
	feedbackID, ok := feedbackParam(w, r)
	if !ok {
		return
	}

	var req feedback.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fb, err := h.svc.Update(r.Context(), feedbackID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fb)
}

func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	feedbackID, ok := feedbackParam(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), feedbackID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func feedbackParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	feedbackID, err := uuid.Parse(chi.URLParam(r, "feedbackID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid feedback ID"})
		return uuid.Nil, false
	}
	return feedbackID, true
}
