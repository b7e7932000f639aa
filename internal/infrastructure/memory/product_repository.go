package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo catálogo en memoria. El catálogo pertenece a otro servicio; aquí
// se carga con Put.
type ProductRepo struct {
	st *state
}

// Put agrega o reemplaza un producto.
func (r *ProductRepo) Put(p *entity.Product) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cp := *p
	r.st.products[key{p.TenantID, p.ID}] = &cp
}

// Upsert igual que Put pero conserva CachedQuantity del producto existente.
func (r *ProductRepo) Upsert(ctx context.Context, p *entity.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	cp := *p
	if prev, ok := r.st.products[key{p.TenantID, p.ID}]; ok {
		cp.CachedQuantity = prev.CachedQuantity
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	r.st.products[key{p.TenantID, p.ID}] = &cp
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, tenantID, productID string) (*entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	p, ok := r.st.products[key{tenantID, productID}]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.st.mu.RLock()
	var all []*entity.Product
	for k, p := range r.st.products {
		if k.tenant == tenantID {
			cp := *p
			all = append(all, &cp)
		}
	}
	r.st.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].SKU < all[j].SKU })
	if offset >= len(all) {
		return []*entity.Product{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (r *ProductRepo) UpdateCachedQuantity(ctx context.Context, tenantID, productID string, qty decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if p, ok := r.st.products[key{tenantID, productID}]; ok {
		p.CachedQuantity = qty
		p.UpdatedAt = time.Now().UTC()
	}
	return nil
}
