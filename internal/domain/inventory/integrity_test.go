package inventory_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

func sampleFields() inventory.IntegrityFields {
	return inventory.IntegrityFields{
		ClientID:        "pdv-01-000123",
		ProductID:       "p1",
		TypeCode:        "VENDA",
		Quantity:        decimal.RequireFromString("-4.00"),
		ClientTimestamp: time.Date(2026, 5, 1, 9, 30, 15, 123456789, time.FixedZone("BRT", -3*3600)),
		Reason:          "venda balcão",
		Notes:           "",
	}
}

func TestIntegrity_FormaCanonica(t *testing.T) {
	got := sampleFields().Canonical()
	want := strings.Join([]string{
		"pdv-01-000123", "p1", "VENDA", "-4", "2026-05-01T12:30:15.123Z", "venda balcão", "",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestIntegrity_HashDeterministaYVerificable(t *testing.T) {
	f := sampleFields()
	h := inventory.ComputeIntegrityHash(f)
	assert.Len(t, h, 64)
	assert.Equal(t, h, inventory.ComputeIntegrityHash(f))

	assert.True(t, inventory.VerifyIntegrity(f, h))
	assert.True(t, inventory.VerifyIntegrity(f, strings.ToUpper(h)), "hex en mayúsculas también vale")
}

func TestIntegrity_DetectaAlteracion(t *testing.T) {
	f := sampleFields()
	h := inventory.ComputeIntegrityHash(f)

	tampered := f
	tampered.Quantity = decimal.NewFromInt(-40)
	assert.False(t, inventory.VerifyIntegrity(tampered, h))

	assert.False(t, inventory.VerifyIntegrity(f, ""))
	assert.False(t, inventory.VerifyIntegrity(f, "abc"))
}

func TestIntegrity_NormalizaUnicode(t *testing.T) {
	composed := sampleFields()
	decomposed := sampleFields()
	decomposed.Reason = "venda balca\u0303o"

	assert.Equal(t, inventory.ComputeIntegrityHash(composed), inventory.ComputeIntegrityHash(decomposed))
}
