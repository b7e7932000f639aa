package inventory

import "github.com/jhoicas/estoque-api/internal/domain/entity"

// DefaultMovementTypes catálogo global con el que arranca todo tenant.
func DefaultMovementTypes() []entity.MovementType {
	base := func(code, desc string, dir entity.Direction) entity.MovementType {
		return entity.MovementType{
			Code:                       code,
			Description:                desc,
			Direction:                  dir,
			AllowsControlledSubstances: true,
			Active:                     true,
			Version:                    1,
			Lifecycle:                  entity.LifecycleActive,
		}
	}

	venda := base(entity.TypeVenda, "Venda no PDV", entity.DirectionOut)

	compra := base(entity.TypeEntradaCompra, "Entrada por compra", entity.DirectionIn)
	compra.RequiresSupplier = true
	compra.RequiresInvoice = true
	compra.RequiresLot = true

	ajustePos := base(entity.TypeAjustePositivo, "Ajuste positivo", entity.DirectionIn)
	ajustePos.AllowsControlledSubstances = false

	ajusteNeg := base(entity.TypeAjusteNegativo, "Ajuste negativo", entity.DirectionOut)
	ajusteNeg.RequiresApproval = true
	ajusteNeg.AllowsControlledSubstances = false

	devCliente := base(entity.TypeDevolucaoCliente, "Devolução de cliente", entity.DirectionIn)

	devFornecedor := base(entity.TypeDevolucaoFornecedor, "Devolução ao fornecedor", entity.DirectionOut)
	devFornecedor.RequiresSupplier = true

	perda := base(entity.TypePerda, "Perda ou avaria", entity.DirectionOut)
	perda.RequiresApproval = true

	vencimento := base(entity.TypeVencimento, "Baixa por vencimento", entity.DirectionOut)

	inventario := base(entity.TypeInventario, "Acerto de inventário", entity.DirectionNeutral)

	return []entity.MovementType{
		venda, compra, ajustePos, ajusteNeg, devCliente, devFornecedor, perda, vencimento, inventario,
	}
}
