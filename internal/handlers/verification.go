package handlers

import (
	"net/http"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
)

func (h *HTTPHandler) HybridVerification(w http.ResponseWriter, r *http.Request) {
	var req entities.HybridVerificationRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, invalidBody(err))
		return
	}

	result, err := h.verification.Verify(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) HybridVerificationStatus(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.verification.Status())
}
