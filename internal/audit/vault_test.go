package audit

import (
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/shared"
)

const hexKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func sampleData() entities.AuditLogData {
	return entities.AuditLogData{
		WalletAddress:       "0x8ba1f109551bd432803012645ac136ddd64dba72",
		TransactionValueAED: 75000,
		RiskScore:           72,
		RiskLevel:           entities.RiskLevelDanger,
		AnalysisDetails: map[string]any{
			"verdict":       "Do not send.",
			"mixerDetected": true,
			"certificateId": "SV-2025-AB12-UAE",
		},
		BlockchainData: map[string]any{"network": "ethereum"},
		Timestamp:      time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC),
	}
}

func TestVault_RoundTrip(t *testing.T) {
	for _, key := range []string{hexKey, "a passphrase that is not hex"} {
		v, err := NewVault(key, 50000)
		require.NoError(t, err)
		require.True(t, v.Configured())

		data := sampleData()
		sealed, err := v.Seal(data)
		require.NoError(t, err)

		plaintext, err := json.Marshal(data)
		require.NoError(t, err)
		require.Equal(t, Digest(plaintext), sealed.DataHash)
		require.Len(t, sealed.TransactionHash, 66)
		require.Len(t, sealed.EncryptionIV, nonceSize*2)

		opened, err := v.Open(sealed)
		require.NoError(t, err)
		require.Equal(t, data, *opened)
	}
}

func TestVault_MinimalPayloadRoundTrip(t *testing.T) {
	v, err := NewVault(hexKey, 50000)
	require.NoError(t, err)

	data := entities.AuditLogData{
		WalletAddress:       "0x0000000000000000000000000000000000000001",
		TransactionValueAED: 50000,
		RiskLevel:           entities.RiskLevelSafe,
		AnalysisDetails:     map[string]any{},
		Timestamp:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	sealed, err := v.Seal(data)
	require.NoError(t, err)

	opened, err := v.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, data, *opened)
}

func TestVault_UniquePerCall(t *testing.T) {
	v, err := NewVault(hexKey, 50000)
	require.NoError(t, err)

	a, err := v.Seal(sampleData())
	require.NoError(t, err)
	b, err := v.Seal(sampleData())
	require.NoError(t, err)

	require.NotEqual(t, a.TransactionHash, b.TransactionHash)
	require.NotEqual(t, a.EncryptionIV, b.EncryptionIV)
	require.NotEqual(t, a.EncryptedData, b.EncryptedData)
	require.Equal(t, a.DataHash, b.DataHash)
}

func TestVault_NotConfigured(t *testing.T) {
	v, err := NewVault("", 50000)
	require.NoError(t, err)
	require.False(t, v.Configured())

	_, err = v.Seal(sampleData())
	require.ErrorIs(t, err, shared.ErrNotConfigured)

	_, err = v.Open(&entities.EncryptedAuditLog{})
	require.ErrorIs(t, err, shared.ErrNotConfigured)
}

func TestVault_BelowMinimum(t *testing.T) {
	v, err := NewVault(hexKey, 50000)
	require.NoError(t, err)

	data := sampleData()
	data.TransactionValueAED = 49999.99
	_, err = v.Seal(data)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestVault_TamperedCiphertext(t *testing.T) {
	v, err := NewVault(hexKey, 50000)
	require.NoError(t, err)

	sealed, err := v.Seal(sampleData())
	require.NoError(t, err)

	raw, err := hex.DecodeString(sealed.EncryptedData)
	require.NoError(t, err)
	raw[0] ^= 0xff
	sealed.EncryptedData = hex.EncodeToString(raw)

	_, err = v.Open(sealed)
	require.ErrorIs(t, err, shared.ErrDecryptionFailed)
	require.NotErrorIs(t, err, shared.ErrNotFound)
}

func TestVault_WrongKey(t *testing.T) {
	v, err := NewVault(hexKey, 50000)
	require.NoError(t, err)
	other, err := NewVault("another key", 50000)
	require.NoError(t, err)

	sealed, err := v.Seal(sampleData())
	require.NoError(t, err)

	_, err = other.Open(sealed)
	require.ErrorIs(t, err, shared.ErrDecryptionFailed)
}

func TestVault_HashMismatch(t *testing.T) {
	v, err := NewVault(hexKey, 50000)
	require.NoError(t, err)

	sealed, err := v.Seal(sampleData())
	require.NoError(t, err)
	sealed.DataHash = Digest([]byte("something else"))

	_, err = v.Open(sealed)
	require.ErrorIs(t, err, shared.ErrDecryptionFailed)
}

func TestVault_MalformedIV(t *testing.T) {
	v, err := NewVault(hexKey, 50000)
	require.NoError(t, err)

	sealed, err := v.Seal(sampleData())
	require.NoError(t, err)
	sealed.EncryptionIV = "zz"

	_, err = v.Open(sealed)
	require.ErrorIs(t, err, shared.ErrDecryptionFailed)
}

func TestVault_NumericDetailsRoundTripAsJSON(t *testing.T) {
	v, err := NewVault(hexKey, 50000)
	require.NoError(t, err)

	data := sampleData()
	data.AnalysisDetails = map[string]any{
		"verifiedThreatCount": 3,
		"aiRiskScore":         int64(87),
		"recentTransfers":     []int{1, 2},
		"balanceEth":          "1.500000",
	}
	data.BlockchainData = map[string]any{
		"transactionCount": uint64(42),
		"walletAgeDays":    365,
		"contract":         map[string]any{"deployBlock": 1234},
	}

	sealed, err := v.Seal(data)
	require.NoError(t, err)
	opened, err := v.Open(sealed)
	require.NoError(t, err)

	require.Equal(t, float64(3), opened.AnalysisDetails["verifiedThreatCount"])

	want, err := json.Marshal(data)
	require.NoError(t, err)
	got, err := json.Marshal(opened)
	require.NoError(t, err)
	require.JSONEq(t, string(want), string(got))
	require.Equal(t, sealed.DataHash, Digest(got))
}
