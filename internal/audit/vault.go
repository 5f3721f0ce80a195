// Package audit seals compliance records with AES-256-GCM and keeps them write-once.
package audit

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/sand/wallet-risk-engine/backend/internal/core/ports"
	"github.com/sand/wallet-risk-engine/backend/internal/entities"
	"github.com/sand/wallet-risk-engine/backend/internal/shared"
)

const (
	keySize   = 32
	nonceSize = 12
	hkdfInfo  = "wallet-risk-engine/audit-vault/v1"
)

// Vault encrypts and decrypts audit payloads. A Vault built without a key
// refuses every operation with shared.ErrNotConfigured.
type Vault struct {
	aead        cipher.AEAD
	minValueAED float64
	now         func() time.Time
}

// NewVault derives the AES key from key: 64 hex characters are used as raw key
// bytes, anything else goes through HKDF-SHA256. An empty key yields an unconfigured vault.
func NewVault(key string, minValueAED float64) (*Vault, error) {
	if minValueAED <= 0 {
		minValueAED = ports.AuditMinAmountAED
	}
	v := &Vault{minValueAED: minValueAED, now: time.Now}
	if key == "" {
		return v, nil
	}

	raw, err := deriveKey(key)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	v.aead, err = cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return v, nil
}

func deriveKey(key string) ([]byte, error) {
	if len(key) == keySize*2 {
		if raw, err := hex.DecodeString(key); err == nil {
			return raw, nil
		}
	}

	raw := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(key), nil, []byte(hkdfInfo)), raw); err != nil {
		return nil, fmt.Errorf("failed to derive audit key: %w", err)
	}
	return raw, nil
}

func (v *Vault) Configured() bool {
	return v.aead != nil
}

// Seal encrypts data under a fresh random IV. dataHash is the SHA-256 of the
// exact plaintext bytes; transactionHash is a unique opaque reference.
func (v *Vault) Seal(data entities.AuditLogData) (*entities.EncryptedAuditLog, error) {
	if !v.Configured() {
		return nil, fmt.Errorf("audit vault: %w", shared.ErrNotConfigured)
	}
	if data.TransactionValueAED < v.minValueAED {
		return nil, shared.NewValidationError("transactionValueAED",
			fmt.Sprintf("transaction value must be at least %.0f AED", v.minValueAED),
			fmt.Sprintf("يجب ألا تقل قيمة المعاملة عن %.0f درهم", v.minValueAED))
	}

	plaintext, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit payload: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	ciphertext := v.aead.Seal(nil, nonce, plaintext, nil)
	dataHash := Digest(plaintext)
	salt := uuid.New()

	return &entities.EncryptedAuditLog{
		TransactionHash:     crypto.Keccak256Hash([]byte(dataHash), nonce, salt[:]).Hex(),
		WalletAddress:       data.WalletAddress,
		TransactionValueAED: data.TransactionValueAED,
		RiskScore:           data.RiskScore,
		RiskLevel:           data.RiskLevel,
		EncryptedData:       hex.EncodeToString(ciphertext),
		EncryptionIV:        hex.EncodeToString(nonce),
		DataHash:            dataHash,
		TimestampUTC:        v.now().UTC(),
	}, nil
}

// Open decrypts a sealed record and checks the plaintext against its dataHash.
// Any failure is reported as shared.ErrDecryptionFailed.
func (v *Vault) Open(log *entities.EncryptedAuditLog) (*entities.AuditLogData, error) {
	if !v.Configured() {
		return nil, fmt.Errorf("audit vault: %w", shared.ErrNotConfigured)
	}

	ciphertext, err := hex.DecodeString(log.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed ciphertext", shared.ErrDecryptionFailed)
	}
	nonce, err := hex.DecodeString(log.EncryptionIV)
	if err != nil || len(nonce) != nonceSize {
		return nil, fmt.Errorf("%w: malformed IV", shared.ErrDecryptionFailed)
	}

	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrDecryptionFailed, err)
	}

	if subtle.ConstantTimeCompare([]byte(Digest(plaintext)), []byte(log.DataHash)) != 1 {
		return nil, fmt.Errorf("%w: integrity hash mismatch", shared.ErrDecryptionFailed)
	}

	var data entities.AuditLogData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrDecryptionFailed, err)
	}

	return &data, nil
}

// Digest is the hex SHA-256 of b.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
