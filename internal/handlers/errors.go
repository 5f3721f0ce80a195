package handlers

import (
	"errors"
	"net/http"

	"github.com/sand/wallet-risk-engine/backend/internal/shared"
)

const (
	codeValidation       = "VALIDATION_ERROR"
	codeUnavailable      = "SERVICE_UNAVAILABLE"
	codeNotFound         = "NOT_FOUND"
	codeDecryptionFailed = "DECRYPTION_FAILED"
	codeInternal         = "INTERNAL_ERROR"
)

type errorResponse struct {
	Error   string `json:"error"`
	ErrorAr string `json:"errorAr"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// writeError maps the error taxonomy to HTTP statuses.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *shared.ValidationError

	switch {
	case errors.As(err, &vErr):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   vErr.Message,
			ErrorAr: vErr.MessageAr,
			Code:    codeValidation,
			Field:   vErr.Field,
		})
	case errors.Is(err, shared.ErrValidation):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   err.Error(),
			ErrorAr: "بيانات الطلب غير صالحة",
			Code:    codeValidation,
		})
	case errors.Is(err, shared.ErrNotConfigured):
		h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:   "Service is not configured",
			ErrorAr: "الخدمة غير مهيأة",
			Code:    codeUnavailable,
		})
	case errors.Is(err, shared.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   "Record not found",
			ErrorAr: "السجل غير موجود",
			Code:    codeNotFound,
		})
	case errors.Is(err, shared.ErrDecryptionFailed):
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to decrypt audit record",
			ErrorAr: "فشل فك تشفير سجل التدقيق",
			Code:    codeDecryptionFailed,
		})
	default:
		h.logger.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)

		resp := errorResponse{
			Error:   "Internal server error",
			ErrorAr: "خطأ داخلي في الخادم",
			Code:    codeInternal,
		}
		if !h.production {
			resp.Detail = err.Error()
		}
		h.writeJSON(w, http.StatusInternalServerError, resp)
	}
}

func invalidBody(err error) error {
	return &shared.ValidationError{
		Field:     "body",
		Message:   "invalid request body: " + err.Error(),
		MessageAr: "نص الطلب غير صالح",
	}
}
