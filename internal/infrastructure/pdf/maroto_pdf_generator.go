// Package pdf genera la ficha kardex de un producto: el ledger de estoque en
// orden de aplicación con saldos antes/después.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: SKU + Nombre        │  Versión + Fecha de emisión  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: Cantidad / Costo medio / Banderas                 │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Fecha | Tipo | Lotes | Cant. | Antes | Después      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR de auditoría + leyenda                          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	appinv "github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

var _ appinv.KardexPDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 102, Blue: 76}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa KardexPDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	now func() time.Time
}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{now: time.Now} }

// GenerateKardexPDF genera el PDF y devuelve sus bytes. records debe venir en
// orden de aplicación.
func (g *MarotoPDFGenerator) GenerateKardexPDF(
	ctx context.Context,
	product *entity.Product,
	agg *entity.StockAggregate,
	records []entity.MovementRecord,
) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("Kardex "+product.SKU, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(product, agg, g.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(product, agg, len(records)))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	if len(records) == 0 {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("Sin movimientos aplicados.", props.Text{Size: 8, Align: align.Center, Top: 2, Color: colorGray}),
		)))
	}
	for _, r := range tableDetailRows(records) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(product, agg))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar kardex: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(product *entity.Product, agg *entity.StockAggregate, at time.Time) core.Row {
	return row.New(18).Add(
		col.New(8).Add(
			text.New(product.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("SKU: "+product.SKU, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("FICHA KARDEX", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Versión %d", agg.Version), props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 7,
			}),
			text.New("Emitido: "+at.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func summaryRow(product *entity.Product, agg *entity.StockAggregate, movements int) core.Row {
	var flags []string
	if product.Controlled {
		flags = append(flags, "Controlado (Portaria 344)")
	}
	if product.LotTracked {
		flags = append(flags, "Control por lote (FEFO)")
	}
	qtyColor := colorPrimary
	if agg.Quantity.LessThanOrEqual(product.MinStock) {
		qtyColor = colorRed
	}
	return row.New(14).Add(
		col.New(4).Add(
			text.New("CANTIDAD ACTUAL", props.Text{Style: fontstyle.Bold, Size: 7, Color: colorGray, Top: 1}),
			text.New(formatDecimal(agg.Quantity, 3), props.Text{Style: fontstyle.Bold, Size: 12, Top: 5, Color: qtyColor}),
		),
		col.New(4).Add(
			text.New("COSTO MEDIO", props.Text{Style: fontstyle.Bold, Size: 7, Color: colorGray, Top: 1}),
			text.New("R$ "+formatDecimal(agg.AverageCost, 2), props.Text{Size: 11, Top: 5}),
		),
		col.New(4).Add(
			text.New(fmt.Sprintf("%d movimientos  |  mínimo %s", movements, formatDecimal(product.MinStock, 0)), props.Text{
				Size: 7, Align: align.Right, Color: colorGray, Top: 1,
			}),
			text.New(nonEmpty(strings.Join(flags, "  |  "), "—"), props.Text{
				Size: 7, Align: align.Right, Top: 6,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 7, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 2, align.Left),
		h("Tipo", 3, align.Left),
		h("Lotes", 2, align.Left),
		h("Cant.", 2, align.Right),
		h("Antes", 1, align.Right),
		h("Después", 2, align.Right),
	)
}

// tableDetailRows una fila por movimiento; las salidas van en rojo.
func tableDetailRows(records []entity.MovementRecord) []core.Row {
	result := make([]core.Row, 0, len(records))
	for _, r := range records {
		qtyProps := props.Text{Size: 7, Align: align.Right, Top: 1, Right: 1}
		if r.IsOutbound() {
			qtyProps.Color = colorRed
		}
		result = append(result, row.New(6).Add(
			col.New(2).Add(text.New(
				r.ServerTimestamp.Format("02/01/06 15:04"),
				props.Text{Size: 7, Top: 1, Left: 1},
			)),
			col.New(3).Add(text.New(
				r.TypeCode,
				props.Text{Size: 7, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				nonEmpty(lotNumbers(r.Allocations), "—"),
				props.Text{Size: 6.5, Top: 1, Left: 1, Color: colorGray},
			)),
			col.New(2).Add(text.New(formatDecimal(r.Quantity, 3), qtyProps)),
			col.New(1).Add(text.New(
				formatDecimal(r.QuantityBefore, 3),
				props.Text{Size: 7, Align: align.Right, Top: 1, Right: 1, Color: colorGray},
			)),
			col.New(2).Add(text.New(
				formatDecimal(r.QuantityAfter, 3),
				props.Text{Style: fontstyle.Bold, Size: 7, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// footerRow QR con tenant, producto, versión y último movimiento para auditoría.
func footerRow(product *entity.Product, agg *entity.StockAggregate) core.Row {
	audit := fmt.Sprintf("estoque:%s:%s:v%d:%s", product.TenantID, product.ID, agg.Version, agg.LastMovementID)
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(audit, props.Rect{
			Percent: 95,
			Center:  true,
		})),
		col.New(9).Add(
			text.New("Saldo reconstruible reproduciendo el ledger de movimientos.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New(audit, props.Text{
				Size: 6.5, Top: 12, Left: 3, Color: colorGray,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func lotNumbers(allocations []entity.LotAllocation) string {
	parts := make([]string, 0, len(allocations))
	for _, a := range allocations {
		if a.LotNumber != "" {
			parts = append(parts, a.LotNumber)
		} else {
			parts = append(parts, a.LotID)
		}
	}
	return strings.Join(parts, ", ")
}

// formatDecimal formato pt-BR: punto de miles y coma decimal.
// Ej: 1234567.5 con 2 → "1.234.567,50"; -20 con 0 → "-20"
func formatDecimal(d decimal.Decimal, places int32) string {
	s := d.Abs().StringFixed(places)
	intPart, frac, _ := strings.Cut(s, ".")
	out := formatThousands(intPart)
	if frac != "" {
		out += "," + frac
	}
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}

// formatThousands inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func formatThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
