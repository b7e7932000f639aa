package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio. Los errores tipados de abajo los envuelven para que
// errors.Is funcione contra el sentinel correspondiente.
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrDuplicate            = errors.New("recurso duplicado")
	ErrUnauthorized         = errors.New("no autorizado")
	ErrForbidden            = errors.New("acceso denegado")
	ErrInsufficientStock    = errors.New("stock insuficiente")
	ErrInsufficientLotStock = errors.New("stock insuficiente en lotes")
	ErrPolicyViolation      = errors.New("violación de la política del tipo de movimiento")
	ErrVersionConflict      = errors.New("conflicto de versión del agregado")
	ErrIntegrityMismatch    = errors.New("hash de integridad no coincide")
	ErrModuleNotEntitled    = errors.New("módulo no contratado")
	ErrNotPending           = errors.New("el movimiento no está pendiente de aprobación")
)

// Violation describe una regla incumplida por un movimiento candidato.
type Violation struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func joinViolations(vs []Violation) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, v.Message)
	}
	return strings.Join(parts, "; ")
}

// ValidationError entrada malformada o tipo de movimiento desconocido. Nunca se reintenta.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, joinViolations(e.Violations))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError atajo para una única violación.
func NewValidationError(code, field, message string) *ValidationError {
	return &ValidationError{Violations: []Violation{{Code: code, Field: field, Message: message}}}
}

// PolicyError el movimiento no cumple las reglas configuradas para su tipo.
type PolicyError struct {
	Violations []Violation
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPolicyViolation, joinViolations(e.Violations))
}

func (e *PolicyError) Unwrap() error { return ErrPolicyViolation }

// InsufficientStockError salida que dejaría el agregado en negativo.
type InsufficientStockError struct {
	ProductID string
	Current   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: producto %s actual %s solicitado %s",
		ErrInsufficientStock, e.ProductID, e.Current.String(), e.Requested.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InsufficientLotStockError los lotes disponibles no cubren la cantidad pedida.
type InsufficientLotStockError struct {
	ProductID string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientLotStockError) Error() string {
	return fmt.Sprintf("%s: producto %s disponible en lotes %s solicitado %s",
		ErrInsufficientLotStock, e.ProductID, e.Available.String(), e.Requested.String())
}

func (e *InsufficientLotStockError) Unwrap() error { return ErrInsufficientLotStock }
