package inventory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

var base = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func item(id, productID, typeCode string, qty int64, at time.Time) dto.SyncMovementItem {
	return dto.SyncMovementItem{
		ID:              id,
		ProductID:       productID,
		Type:            typeCode,
		Quantity:        decimal.NewFromInt(qty),
		Reason:          "pdv offline",
		ClientTimestamp: at,
		IntegrityHash:   signedHash(id, productID, typeCode, qty, at, "pdv offline"),
	}
}

func (f *fixture) syncBatch(t *testing.T, items ...dto.SyncMovementItem) *dto.SyncReport {
	t.Helper()
	report, err := f.sync.SyncBatch(context.Background(), tenant, actor, entity.RoleEstoquista, items)
	require.NoError(t, err)
	return report
}

func TestSync_AplicaEnOrdenDeTimestamp(t *testing.T) {
	f := newFixture(t)
	report := f.syncBatch(t,
		item("b", dipirona, entity.TypeVenda, -4, base.Add(time.Minute)),
		item("a", dipirona, entity.TypeAjustePositivo, 10, base),
	)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Details, 2)
	assert.Equal(t, "a", report.Details[0].ID)
	assert.Equal(t, dto.SyncItemApplied, report.Details[1].Status)
	require.NotNil(t, report.Details[1].QuantityAfter)
	assert.True(t, report.Details[1].QuantityAfter.Equal(decimal.NewFromInt(6)))
	assert.True(t, f.quantity(t, dipirona).Equal(decimal.NewFromInt(6)))
}

func TestSync_HashAlteradoRechazado(t *testing.T) {
	f := newFixture(t)
	tampered := item("a", dipirona, entity.TypeAjustePositivo, 10, base)
	tampered.Quantity = decimal.NewFromInt(100)

	report := f.syncBatch(t, tampered)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, dto.SyncReasonIntegrity, report.Details[0].Reason)
	assert.True(t, f.quantity(t, dipirona).IsZero())
}

func TestSync_ReenvioEsDuplicado(t *testing.T) {
	f := newFixture(t)
	batch := []dto.SyncMovementItem{
		item("a", dipirona, entity.TypeAjustePositivo, 10, base),
		item("b", dipirona, entity.TypeVenda, -2, base.Add(time.Second)),
	}
	f.syncBatch(t, batch...)

	report := f.syncBatch(t, batch...)
	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, 0, report.Succeeded)
	assert.NotEmpty(t, report.Details[0].MovementID)
	assert.True(t, f.quantity(t, dipirona).Equal(decimal.NewFromInt(8)))
}

func TestSync_IDReutilizadoEsConflicto(t *testing.T) {
	f := newFixture(t)
	f.syncBatch(t, item("a", dipirona, entity.TypeAjustePositivo, 10, base))

	report := f.syncBatch(t, item("a", dipirona, entity.TypeAjustePositivo, 3, base))
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 1, report.Conflicts)
	assert.Equal(t, dto.SyncReasonConflict, report.Details[0].Reason)
	assert.True(t, f.quantity(t, dipirona).Equal(decimal.NewFromInt(10)))
}

func TestSync_FalloParcialNoAbortaElLote(t *testing.T) {
	f := newFixture(t)
	report := f.syncBatch(t,
		item("a", dipirona, entity.TypeAjustePositivo, 2, base),
		item("b", dipirona, entity.TypeVenda, -5, base.Add(time.Second)),
		item("c", dipirona, entity.TypeVenda, -1, base.Add(2*time.Second)),
	)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, dto.SyncReasonInsufficientStock, report.Details[1].Reason)
	assert.True(t, f.quantity(t, dipirona).Equal(decimal.NewFromInt(1)))
}

func TestSync_PoliticaInformaViolaciones(t *testing.T) {
	f := newFixture(t)
	report := f.syncBatch(t, item("a", rivotril, entity.TypeAjustePositivo, 1, base))

	require.Len(t, report.Details, 1)
	assert.Equal(t, dto.SyncReasonPolicy, report.Details[0].Reason)
	assert.NotEmpty(t, report.Details[0].Violations)
}

func TestSync_TipoConAprobacionQuedaPendiente(t *testing.T) {
	f := newFixture(t)
	report := f.syncBatch(t,
		item("a", dipirona, entity.TypeAjustePositivo, 5, base),
		item("b", dipirona, entity.TypePerda, -1, base.Add(time.Second)),
	)

	assert.Equal(t, 2, report.Succeeded)
	assert.True(t, report.Details[1].PendingApproval)
	assert.True(t, f.quantity(t, dipirona).Equal(decimal.NewFromInt(5)))
}

func TestSync_ContextoCancelado(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.sync.SyncBatch(ctx, tenant, actor, entity.RoleEstoquista, []dto.SyncMovementItem{
		item("a", dipirona, entity.TypeAjustePositivo, 5, base),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, dto.SyncReasonCancelled, report.Details[0].Reason)
	assert.True(t, f.quantity(t, dipirona).IsZero())
}

func TestSync_LoteInvalido(t *testing.T) {
	f := newFixture(t)
	_, err := f.sync.SyncBatch(context.Background(), tenant, actor, entity.RoleEstoquista, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	var big []dto.SyncMovementItem
	for i := 0; i < 51; i++ {
		big = append(big, item(fmt.Sprintf("m-%02d", i), dipirona, entity.TypeAjustePositivo, 1, base))
	}
	_, err = f.sync.SyncBatch(context.Background(), tenant, actor, entity.RoleEstoquista, big)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
