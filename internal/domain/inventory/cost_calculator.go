package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost costo promedio ponderado tras una entrada.
// NuevoCusto = ((QtdAtual * CustoAtual) + (QtdEntrada * CustoEntrada)) / (QtdAtual + QtdEntrada)
func WeightedAverageCost(qtyAtual, custoAtual, qtyEntrada, custoEntrada decimal.Decimal) decimal.Decimal {
	if qtyAtual.IsNegative() {
		qtyAtual = decimal.Zero
	}
	sum := qtyAtual.Add(qtyEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := qtyAtual.Mul(custoAtual).Add(qtyEntrada.Mul(custoEntrada))
	return num.Div(sum).Round(4)
}
