package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// UpsertProductRequest body para PUT /api/estoque/produtos/:productId.
// El saldo no se informa aquí; entra y sale solo por movimientos.
type UpsertProductRequest struct {
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Controlled bool            `json:"controlled"`
	LotTracked bool            `json:"lotTracked"`
	MinStock   decimal.Decimal `json:"minStock"`
	Cost       decimal.Decimal `json:"cost"`
}

// ProductResponse producto del catálogo con su estoque_atual.
type ProductResponse struct {
	ID             string          `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Controlled     bool            `json:"controlled"`
	LotTracked     bool            `json:"lotTracked"`
	MinStock       decimal.Decimal `json:"minStock"`
	Cost           decimal.Decimal `json:"cost"`
	CachedQuantity decimal.Decimal `json:"estoqueAtual"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ProductListResponse listado paginado de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
