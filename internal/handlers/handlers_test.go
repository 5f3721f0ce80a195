package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/sand/wallet-risk-engine/backend/internal/audit"
	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/risk"
	"github.com/sand/wallet-risk-engine/backend/internal/shared"
	"github.com/sand/wallet-risk-engine/backend/internal/threat"
	"github.com/sand/wallet-risk-engine/backend/internal/verification"
)

const (
	wallet   = "0x8ba1f109551bd432803012645ac136ddd64dba72"
	vaultKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

type stubGatherer struct{ configured bool }

func (s stubGatherer) Configured() bool { return s.configured }

func (s stubGatherer) Gather(_ context.Context, address, network string, _ int) (*entities.OnChainFacts, error) {
	return &entities.OnChainFacts{
		Address:            address,
		Network:            network,
		Balance:            entities.Balance{Wei: "0", Ether: "0.000000"},
		RecentTransactions: []entities.Transfer{},
	}, nil
}

type failingInsights struct{}

func (failingInsights) IsEnabled() bool { return true }

func (failingInsights) Insight(context.Context, *entities.OnChainFacts, float64) (*entities.AIInsight, error) {
	return nil, fmt.Errorf("upstream 502: %w", shared.ErrUpstreamDegraded)
}

type brokenAudit struct{ AuditService }

func (brokenAudit) List(context.Context) ([]entities.AuditLogSummary, error) {
	return nil, errors.New("connection refused to 10.0.0.5")
}

type env struct {
	router  *mux.Router
	threats *threat.MemoryStore
	store   *audit.MemoryStore
	handler *HTTPHandler
}

func newEnv(t *testing.T, providerConfigured bool, key string) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	threats := threat.NewMemoryStore()
	vault, err := audit.NewVault(key, 50000)
	require.NoError(t, err)
	store := audit.NewMemoryStore()
	auditSvc := audit.NewService(logger, vault, store, 50)

	orchestrator := verification.NewOrchestrator(logger, stubGatherer{configured: providerConfigured}, threats, failingInsights{}, auditSvc, verification.Simulation(true))

	h := NewHTTPHandler(logger, risk.NewScorer(), threats, orchestrator, auditSvc, true)
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	return &env{router: router, threats: threats, store: store, handler: h}
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestCalculateRisk(t *testing.T) {
	e := newEnv(t, true, vaultKey)

	rec := e.do(t, http.MethodPost, "/risk/calculate", map[string]any{
		"address":               wallet,
		"walletAgeDays":         10,
		"transactionCount":      3,
		"blacklistAssociations": 0,
		"isDirectlyBlacklisted": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[map[string]any](t, rec)
	require.Equal(t, float64(40), resp["riskScore"])
	require.Equal(t, "suspicious", resp["riskLevel"])
	require.Equal(t, float64(0), resp["verifiedThreatCount"])
	require.NotEmpty(t, resp["formula"])
}

func TestCalculateRisk_AddsVerifiedReports(t *testing.T) {
	e := newEnv(t, true, vaultKey)
	e.threats.AddVerifiedReports(wallet, 3)

	rec := e.do(t, http.MethodPost, "/risk/calculate", map[string]any{
		"address":          wallet,
		"walletAgeDays":    1,
		"transactionCount": 200,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[map[string]any](t, rec)
	require.Equal(t, float64(3), resp["verifiedThreatCount"])
	require.Equal(t, float64(90), resp["associationScore"])
	require.Equal(t, "danger", resp["riskLevel"])
}

func TestCalculateRisk_AssociationsSaturate(t *testing.T) {
	e := newEnv(t, true, vaultKey)
	e.threats.AddVerifiedReports(wallet, 1)

	body := fmt.Sprintf(`{"address":%q,"walletAgeDays":1,"transactionCount":200,"blacklistAssociations":%d}`, wallet, math.MaxInt)
	rec := e.do(t, http.MethodPost, "/risk/calculate", body)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[map[string]any](t, rec)
	require.Equal(t, float64(90), resp["associationScore"])
	require.Equal(t, "danger", resp["riskLevel"])
}

func TestAddAssociations(t *testing.T) {
	require.Equal(t, 5, addAssociations(2, 3))
	require.Equal(t, math.MaxInt, addAssociations(math.MaxInt, 1))
	require.Equal(t, math.MaxInt, addAssociations(math.MaxInt-1, math.MaxInt))
	require.Equal(t, math.MaxInt, addAssociations(math.MaxInt, 0))
}

func TestCalculateRisk_Blacklisted(t *testing.T) {
	e := newEnv(t, true, vaultKey)
	e.threats.Blacklist(wallet)

	rec := e.do(t, http.MethodPost, "/risk/calculate", map[string]any{
		"address":          wallet,
		"walletAgeDays":    400,
		"transactionCount": 200,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[map[string]any](t, rec)
	require.Equal(t, float64(100), resp["associationScore"])
	require.Equal(t, true, resp["isBlacklisted"])
}

func TestCalculateRisk_Invalid(t *testing.T) {
	e := newEnv(t, true, vaultKey)

	cases := []any{
		`{"address":`,
		map[string]any{"address": "nope", "walletAgeDays": 5},
		map[string]any{"address": wallet, "walletAgeDays": 0},
		map[string]any{"address": wallet, "walletAgeDays": 5, "transactionCount": -1},
		map[string]any{"address": wallet, "walletAgeDays": 5, "blacklistAssociations": -2},
		map[string]any{"address": wallet, "walletAgeDays": "five"},
	}
	for _, body := range cases {
		rec := e.do(t, http.MethodPost, "/risk/calculate", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "%v", body)

		resp := decodeBody[errorResponse](t, rec)
		require.Equal(t, codeValidation, resp.Code)
		require.NotEmpty(t, resp.ErrorAr)
	}
}

func TestHybridVerification(t *testing.T) {
	e := newEnv(t, true, vaultKey)

	rec := e.do(t, http.MethodPost, "/hybrid-verification", map[string]any{
		"walletAddress":        wallet,
		"network":              "ethereum",
		"transactionAmountAED": 10000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeBody[entities.HybridVerificationResult](t, rec)
	require.True(t, result.ThresholdMet)
	require.Equal(t, entities.RiskLevelSafe, result.AIInsight.RiskLevel)
	require.Equal(t, entities.StatusDegraded, result.Status)
	require.Regexp(t, `^SV-\d{4}-[0-9A-F]{4}-UAE$`, result.CertificateID)
}

func TestHybridVerification_BelowMinimum(t *testing.T) {
	e := newEnv(t, true, vaultKey)

	rec := e.do(t, http.MethodPost, "/hybrid-verification", map[string]any{
		"walletAddress":        wallet,
		"network":              "ethereum",
		"transactionAmountAED": 9999,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "transactionAmountAED", decodeBody[errorResponse](t, rec).Field)
}

func TestHybridVerification_Unconfigured(t *testing.T) {
	e := newEnv(t, false, vaultKey)

	rec := e.do(t, http.MethodPost, "/hybrid-verification", map[string]any{
		"walletAddress":        wallet,
		"transactionAmountAED": 20000,
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = e.do(t, http.MethodGet, "/hybrid-verification/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[verification.Status](t, rec)
	require.False(t, status.Configured)
	require.Equal(t, 10000.0, status.MinAmountAED)
}

func TestHybridVerification_Simulation(t *testing.T) {
	e := newEnv(t, false, vaultKey)

	rec := e.do(t, http.MethodPost, "/hybrid-verification", map[string]any{
		"walletAddress":        wallet,
		"transactionAmountAED": 20000,
		"simulationScenario":   entities.SimulationHighRisk,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[entities.HybridVerificationResult](t, rec)
	require.True(t, result.Simulated)
	require.True(t, result.MixerInteractionDetected)
}

func TestAuditLifecycle(t *testing.T) {
	e := newEnv(t, true, vaultKey)

	rec := e.do(t, http.MethodPost, "/audit/log", map[string]any{
		"walletAddress":       wallet,
		"transactionValueAED": 50000,
		"riskScore":           55,
		"riskLevel":           "suspicious",
		"analysisDetails":     map[string]any{"note": "manual review"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	receipt := decodeBody[entities.AuditReceipt](t, rec)
	require.NotEmpty(t, receipt.TransactionHash)
	require.NotEmpty(t, receipt.DataHash)

	rec = e.do(t, http.MethodGet, "/audit/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "encryptedData")
	require.NotContains(t, rec.Body.String(), "encryptionIV")
	logs := decodeBody[[]entities.AuditLogSummary](t, rec)
	require.Len(t, logs, 1)

	rec = e.do(t, http.MethodGet, "/audit/logs/"+wallet, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[[]entities.AuditLogSummary](t, rec), 1)

	rec = e.do(t, http.MethodGet, "/audit/logs/0x0000000000000000000000000000000000000001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decodeBody[[]entities.AuditLogSummary](t, rec))

	rec = e.do(t, http.MethodGet, "/audit/decrypt/"+receipt.TransactionHash, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody[entities.AuditLogData](t, rec)
	require.Equal(t, 55, data.RiskScore)
	require.Equal(t, "manual review", data.AnalysisDetails["note"])
}

func TestAuditLog_BelowMinimum(t *testing.T) {
	e := newEnv(t, true, vaultKey)

	rec := e.do(t, http.MethodPost, "/audit/log", map[string]any{
		"walletAddress":       wallet,
		"transactionValueAED": 49999,
		"riskScore":           10,
		"riskLevel":           "safe",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAudit_Unconfigured(t *testing.T) {
	e := newEnv(t, true, "")

	rec := e.do(t, http.MethodPost, "/audit/log", map[string]any{
		"walletAddress":       wallet,
		"transactionValueAED": 60000,
		"riskScore":           10,
		"riskLevel":           "safe",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = e.do(t, http.MethodGet, "/audit/decrypt/0xabc", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuditDecrypt_NotFoundAndCorrupted(t *testing.T) {
	e := newEnv(t, true, vaultKey)

	rec := e.do(t, http.MethodGet, "/audit/decrypt/0xunknown", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, codeNotFound, decodeBody[errorResponse](t, rec).Code)

	corrupted := &entities.EncryptedAuditLog{
		TransactionHash: "0xcorrupted",
		WalletAddress:   wallet,
		EncryptedData:   "deadbeef",
		EncryptionIV:    "000000000000000000000000",
		DataHash:        "00",
	}
	require.NoError(t, e.store.Insert(context.Background(), corrupted))

	rec = e.do(t, http.MethodGet, "/audit/decrypt/0xcorrupted", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeBody[errorResponse](t, rec)
	require.Equal(t, codeDecryptionFailed, resp.Code)
	require.NotEmpty(t, resp.ErrorAr)
}

func TestInternalErrorDetailHiddenInProduction(t *testing.T) {
	e := newEnv(t, true, vaultKey)
	e.handler.audit = brokenAudit{AuditService: e.handler.audit}

	rec := e.do(t, http.MethodGet, "/audit/logs", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeBody[errorResponse](t, rec)
	require.Equal(t, codeInternal, resp.Code)
	require.Empty(t, resp.Detail)
	require.NotContains(t, rec.Body.String(), "10.0.0.5")

	e.handler.production = false
	rec = e.do(t, http.MethodGet, "/audit/logs", nil)
	require.Contains(t, decodeBody[errorResponse](t, rec).Detail, "10.0.0.5")
}

func TestHealth(t *testing.T) {
	e := newEnv(t, true, "")

	rec := e.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[map[string]any](t, rec)
	require.Equal(t, "ok", resp["status"])
	require.Equal(t, false, resp["auditVaultConfigured"])
}
