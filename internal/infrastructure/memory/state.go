// Package memory backend en memoria del ledger y del catálogo. Lo usan los
// tests y el modo de desarrollo sin base de datos (LEDGER_BACKEND=memory).
package memory

import (
	"sync"
	"time"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

type key struct{ tenant, id string }

type state struct {
	mu sync.RWMutex

	aggregates map[key]entity.StockAggregate
	records    map[key]*entity.MovementRecord // tenant + movement id
	byClient   map[key]string                 // tenant + client id → movement id
	order      []key                          // orden de inserción

	lots     map[key]*entity.Lot
	lotSeq   int64
	products map[key]*entity.Product
	types    map[key]entity.MovementType  // tenant ("" global) + código
	modules  map[key]entity.CompanyModule // tenant + módulo
}

// Store agrupa los repositorios en memoria sobre el mismo estado.
type Store struct {
	st *state
}

// NewStore estado vacío con los tipos de movimiento por defecto cargados.
func NewStore() *Store {
	st := &state{
		aggregates: make(map[key]entity.StockAggregate),
		records:    make(map[key]*entity.MovementRecord),
		byClient:   make(map[key]string),
		lots:       make(map[key]*entity.Lot),
		products:   make(map[key]*entity.Product),
		types:      make(map[key]entity.MovementType),
		modules:    make(map[key]entity.CompanyModule),
	}
	now := time.Now().UTC()
	for _, t := range inventory.DefaultMovementTypes() {
		t.UpdatedAt = now
		st.types[key{"", t.Code}] = t
	}
	return &Store{st: st}
}

// Ledger implementación de repository.LedgerStore.
func (s *Store) Ledger() *LedgerStore { return &LedgerStore{st: s.st} }

// Lots implementación de repository.LotRepository.
func (s *Store) Lots() *LotRepo { return &LotRepo{st: s.st} }

// Products implementación de repository.ProductRepository.
func (s *Store) Products() *ProductRepo { return &ProductRepo{st: s.st} }

// MovementTypes implementación de repository.MovementTypeRepository.
func (s *Store) MovementTypes() *MovementTypeRepo { return &MovementTypeRepo{st: s.st} }

// Companies implementación de repository.CompanyRepository.
func (s *Store) Companies() *CompanyRepo { return &CompanyRepo{st: s.st} }

func cloneRecord(r *entity.MovementRecord) *entity.MovementRecord {
	out := *r
	out.Allocations = append([]entity.LotAllocation(nil), r.Allocations...)
	if r.ApprovedAt != nil {
		at := *r.ApprovedAt
		out.ApprovedAt = &at
	}
	return &out
}

func cloneLot(l *entity.Lot) *entity.Lot {
	out := *l
	if l.ExpiryDate != nil {
		exp := *l.ExpiryDate
		out.ExpiryDate = &exp
	}
	return &out
}
