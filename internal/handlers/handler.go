package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sand/wallet-risk-engine/backend/internal/core/ports"
	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/verification"
)

const maxBodyBytes = 1 << 20

var _ VerificationService = (*verification.Orchestrator)(nil)

type VerificationService interface {
	Status() verification.Status
	Verify(ctx context.Context, req entities.HybridVerificationRequest) (*entities.HybridVerificationResult, error)
}

type AuditService interface {
	Configured() bool
	Log(ctx context.Context, data entities.AuditLogData) (*entities.AuditReceipt, error)
	List(ctx context.Context) ([]entities.AuditLogSummary, error)
	ListByAddress(ctx context.Context, address string) ([]entities.AuditLogSummary, error)
	Decrypt(ctx context.Context, transactionHash string) (*entities.AuditLogData, error)
}

type HTTPHandler struct {
	logger       *slog.Logger
	scorer       ports.RiskScorer
	threats      ports.ThreatLookup
	verification VerificationService
	audit        AuditService
	production   bool
}

// NewHTTPHandler creates the API handler. production hides internal error details from clients.
func NewHTTPHandler(
	logger *slog.Logger,
	scorer ports.RiskScorer,
	threats ports.ThreatLookup,
	verification VerificationService,
	audit AuditService,
	production bool,
) *HTTPHandler {
	return &HTTPHandler{
		logger:       logger,
		scorer:       scorer,
		threats:      threats,
		verification: verification,
		audit:        audit,
		production:   production,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	// Risk
	router.HandleFunc("/risk/calculate", h.CalculateRisk).Methods("POST")

	// Hybrid verification
	router.HandleFunc("/hybrid-verification", h.HybridVerification).Methods("POST")
	router.HandleFunc("/hybrid-verification/status", h.HybridVerificationStatus).Methods("GET")

	// Audit
	router.HandleFunc("/audit/log", h.CreateAuditLog).Methods("POST")
	router.HandleFunc("/audit/logs", h.ListAuditLogs).Methods("GET")
	router.HandleFunc("/audit/logs/{address}", h.ListAuditLogsByAddress).Methods("GET")
	router.HandleFunc("/audit/decrypt/{id}", h.DecryptAuditLog).Methods("GET")

	router.HandleFunc("/health", h.Health).Methods("GET")
}

func (h *HTTPHandler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":               "ok",
		"blockchainConfigured": h.verification.Status().Configured,
		"auditVaultConfigured": h.audit.Configured(),
	})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Error encoding response", "error", err)
	}
}
