package inventory

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// IntegrityTimeLayout formato canónico del timestamp del cliente (UTC, milisegundos).
const IntegrityTimeLayout = "2006-01-02T15:04:05.000Z"

// IntegrityFields campos que el PDV firma al generar un movimiento offline.
type IntegrityFields struct {
	ClientID        string
	ProductID       string
	TypeCode        string
	Quantity        decimal.Decimal
	ClientTimestamp time.Time
	Reason          string
	Notes           string
}

// Canonical serialización determinista: un campo por línea, cantidad sin ceros
// a la derecha, textos en NFC y sin espacios en los extremos.
func (f IntegrityFields) Canonical() string {
	parts := []string{
		strings.TrimSpace(f.ClientID),
		strings.TrimSpace(f.ProductID),
		strings.ToUpper(strings.TrimSpace(f.TypeCode)),
		f.Quantity.String(),
		f.ClientTimestamp.UTC().Format(IntegrityTimeLayout),
		norm.NFC.String(strings.TrimSpace(f.Reason)),
		norm.NFC.String(strings.TrimSpace(f.Notes)),
	}
	return strings.Join(parts, "\n")
}

// ComputeIntegrityHash SHA-256 en hexadecimal minúsculo de la forma canónica.
func ComputeIntegrityHash(f IntegrityFields) string {
	sum := sha256.Sum256([]byte(f.Canonical()))
	return hex.EncodeToString(sum[:])
}

// VerifyIntegrity compara en tiempo constante el hash enviado con el recalculado.
func VerifyIntegrity(f IntegrityFields, hash string) bool {
	want := ComputeIntegrityHash(f)
	got := strings.ToLower(strings.TrimSpace(hash))
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
