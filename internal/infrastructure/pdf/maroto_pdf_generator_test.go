package pdf_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/infrastructure/pdf"
)

func TestGenerateKardexPDF(t *testing.T) {
	product := &entity.Product{ID: "p1", TenantID: "t1", SKU: "DIP-500", Name: "Dipirona 500mg", LotTracked: true, MinStock: decimal.NewFromInt(5)}
	agg := &entity.StockAggregate{TenantID: "t1", ProductID: "p1", Quantity: decimal.NewFromInt(8), AverageCost: decimal.RequireFromString("2.35"), Version: 2, LastMovementID: "m2"}
	now := time.Now().UTC()
	records := []entity.MovementRecord{
		{ID: "m1", TypeCode: entity.TypeEntradaCompra, Quantity: decimal.NewFromInt(10), QuantityBefore: decimal.Zero, QuantityAfter: decimal.NewFromInt(10), ServerTimestamp: now,
			Allocations: []entity.LotAllocation{{LotID: "l1", LotNumber: "L-30", Delta: decimal.NewFromInt(10)}}},
		{ID: "m2", TypeCode: entity.TypeVenda, Quantity: decimal.NewFromInt(-2), QuantityBefore: decimal.NewFromInt(10), QuantityAfter: decimal.NewFromInt(8), ServerTimestamp: now},
	}

	out, err := pdf.NewMarotoPDFGenerator().GenerateKardexPDF(context.Background(), product, agg, records)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	empty, err := pdf.NewMarotoPDFGenerator().GenerateKardexPDF(context.Background(), product, &entity.StockAggregate{}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, empty)
}
