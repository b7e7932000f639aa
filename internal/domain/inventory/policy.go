package inventory

import (
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// Códigos de violación devueltos por PolicySet.Validate.
const (
	ViolationTypeUnknown          = "TYPE_UNKNOWN"
	ViolationTypeInactive         = "TYPE_INACTIVE"
	ViolationZeroQuantity         = "ZERO_QUANTITY"
	ViolationDirectionMismatch    = "DIRECTION_MISMATCH"
	ViolationLotRequired          = "LOT_REQUIRED"
	ViolationLotNotFound          = "LOT_NOT_FOUND"
	ViolationLotExpired           = "LOT_EXPIRED"
	ViolationSupplierRequired     = "SUPPLIER_REQUIRED"
	ViolationInvoiceRequired      = "INVOICE_REQUIRED"
	ViolationControlledNotAllowed = "CONTROLLED_NOT_ALLOWED"
	ViolationReasonRequired       = "REASON_REQUIRED"
)

// PolicySet política tipada de un tenant: defaults globales con las
// redefiniciones del tenant encima. Se carga una vez y se cachea.
type PolicySet struct {
	TenantID string                         `json:"tenantId"`
	Version  int64                          `json:"version"`
	Types    map[string]entity.MovementType `json:"types"`
	LoadedAt time.Time                      `json:"loadedAt"`
}

// Decision resultado de una validación sin violaciones.
type Decision struct {
	Type             entity.MovementType
	RequiresApproval bool
}

// NewPolicySet fusiona los tipos globales y los del tenant. Version crece con
// cada edición de cualquier tipo visible para el tenant.
func NewPolicySet(tenantID string, types []entity.MovementType, loadedAt time.Time) *PolicySet {
	set := &PolicySet{TenantID: tenantID, Types: make(map[string]entity.MovementType, len(types)), LoadedAt: loadedAt}
	for _, t := range types {
		if t.IsGlobal() {
			if _, ok := set.Types[t.Code]; !ok {
				set.Types[t.Code] = t
			}
		}
		set.Version += t.Version
	}
	for _, t := range types {
		if t.TenantID == tenantID && !t.IsGlobal() {
			set.Types[t.Code] = t
		}
	}
	return set
}

// Lookup devuelve el tipo efectivo para code.
func (p *PolicySet) Lookup(code string) (entity.MovementType, bool) {
	t, ok := p.Types[strings.ToUpper(strings.TrimSpace(code))]
	return t, ok
}

// List tipos efectivos ordenados por código.
func (p *PolicySet) List() []entity.MovementType {
	out := make([]entity.MovementType, 0, len(p.Types))
	for _, t := range p.Types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Validate evalúa las reglas del tipo sobre el movimiento candidato, en orden:
// tipo activo, sentido contra signo, lote, proveedor y nota fiscal, sustancia
// controlada. Si el tipo exige aprobación el movimiento se acepta pendiente.
// lot es el lote resuelto a partir de rec.LotID (nil si no se encontró).
func (p *PolicySet) Validate(rec *entity.MovementRecord, product *entity.Product, lot *entity.Lot) (Decision, []domain.Violation) {
	mt, ok := p.Lookup(rec.TypeCode)
	if !ok {
		return Decision{}, []domain.Violation{{Code: ViolationTypeUnknown, Field: "type", Message: "tipo de movimiento desconocido: " + rec.TypeCode}}
	}
	if !mt.Active || (mt.Lifecycle != "" && mt.Lifecycle != entity.LifecycleActive) {
		return Decision{}, []domain.Violation{{Code: ViolationTypeInactive, Field: "type", Message: "tipo de movimiento inactivo: " + mt.Code}}
	}

	var vs []domain.Violation
	add := func(code, field, msg string) {
		vs = append(vs, domain.Violation{Code: code, Field: field, Message: msg})
	}

	switch {
	case rec.Quantity.IsZero():
		add(ViolationZeroQuantity, "quantity", "la cantidad no puede ser cero")
	case mt.Direction == entity.DirectionIn && !rec.Quantity.IsPositive():
		add(ViolationDirectionMismatch, "quantity", "el tipo "+mt.Code+" exige cantidad positiva")
	case mt.Direction == entity.DirectionOut && !rec.Quantity.IsNegative():
		add(ViolationDirectionMismatch, "quantity", "el tipo "+mt.Code+" exige cantidad negativa")
	}

	lotTracked := product != nil && product.LotTracked
	needsExplicitLot := rec.Quantity.IsPositive() && (mt.RequiresLot || lotTracked)
	switch {
	case rec.LotID != "" && (lot == nil || lot.ProductID != rec.ProductID):
		add(ViolationLotNotFound, "lotId", "lote no encontrado para el producto")
	case rec.LotID == "" && needsExplicitLot:
		add(ViolationLotRequired, "lotId", "el movimiento exige lote")
	case rec.LotID == "" && mt.RequiresLot && rec.Quantity.IsNegative() && !lotTracked:
		add(ViolationLotRequired, "lotId", "el movimiento exige lote")
	}

	if mt.RequiresSupplier && strings.TrimSpace(rec.SupplierID) == "" {
		add(ViolationSupplierRequired, "supplierId", "el tipo "+mt.Code+" exige proveedor")
	}
	if mt.RequiresInvoice && strings.TrimSpace(rec.InvoiceNumber) == "" {
		add(ViolationInvoiceRequired, "invoiceNumber", "el tipo "+mt.Code+" exige nota fiscal")
	}
	if !mt.AllowsControlledSubstances && product != nil && product.Controlled {
		add(ViolationControlledNotAllowed, "productId", "el tipo "+mt.Code+" no admite sustancias controladas")
	}
	if strings.TrimSpace(rec.Reason) == "" {
		add(ViolationReasonRequired, "reason", "el motivo es obligatorio")
	}

	if len(vs) > 0 {
		return Decision{Type: mt}, vs
	}
	return Decision{Type: mt, RequiresApproval: mt.RequiresApproval}, nil
}

// ViolationsError convierte violaciones en el error tipado que corresponde:
// entrada malformada (tipo desconocido, cantidad cero) es ValidationError, el resto PolicyError.
func ViolationsError(vs []domain.Violation) error {
	if len(vs) == 0 {
		return nil
	}
	for _, v := range vs {
		if v.Code == ViolationTypeUnknown || v.Code == ViolationZeroQuantity {
			return &domain.ValidationError{Violations: vs}
		}
	}
	return &domain.PolicyError{Violations: vs}
}
