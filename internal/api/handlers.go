package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/vitallic/vitallic-core/core/store"
)

const defaultCallLimit = 50

type Handler struct {
	Store store.Gateway
}

func (h *Handler) Calls(w http.ResponseWriter, r *http.Request) {
	limit := defaultCallLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	calls, err := h.Store.ListCalls(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

func (h *Handler) Transcripts(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")
	if callID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing call id"})
		return
	}

	transcripts, err := h.Store.ListTranscripts(r.Context(), callID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, transcripts)
}

func (h *Handler) Profiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Store.ListProfiles(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
