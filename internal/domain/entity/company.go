package entity

import "time"

// Módulos contratables por un tenant (company_modules.module_name).
const (
	ModuleEstoque   = "estoque"
	ModuleVendas    = "vendas"
	ModuleFiscal    = "fiscal"
	ModulePromocoes = "promocoes"
)

// CompanyModule activación de un módulo para un tenant. Solo se consulta; la
// administración de planes vive fuera de este servicio.
type CompanyModule struct {
	TenantID    string
	ModuleName  string
	IsActive    bool
	ActivatedAt time.Time
	ExpiresAt   *time.Time // nil = sin vencimiento
}

// Entitled indica si el módulo está activo y vigente en at.
func (m CompanyModule) Entitled(at time.Time) bool {
	if !m.IsActive {
		return false
	}
	return m.ExpiresAt == nil || m.ExpiresAt.After(at)
}
