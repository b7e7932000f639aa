package repository

import "context"

// CompanyRepository puerto de consulta de módulos contratados por tenant (DIP).
// La administración de planes vive fuera de este servicio.
type CompanyRepository interface {
	HasActiveModule(ctx context.Context, tenantID, moduleName string) (bool, error)
}
