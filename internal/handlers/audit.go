package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
)

func (h *HTTPHandler) CreateAuditLog(w http.ResponseWriter, r *http.Request) {
	var data entities.AuditLogData
	if err := h.decode(w, r, &data); err != nil {
		h.writeError(w, r, invalidBody(err))
		return
	}

	receipt, err := h.audit.Log(r.Context(), data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, receipt)
}

func (h *HTTPHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.audit.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, logs)
}

func (h *HTTPHandler) ListAuditLogsByAddress(w http.ResponseWriter, r *http.Request) {
	logs, err := h.audit.ListByAddress(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, logs)
}

func (h *HTTPHandler) DecryptAuditLog(w http.ResponseWriter, r *http.Request) {
	data, err := h.audit.Decrypt(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, data)
}
