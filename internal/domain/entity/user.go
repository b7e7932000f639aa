package entity

// Roles reconocidos en el token JWT.
const (
	RoleAdmin        = "admin"
	RoleFarmaceutico = "farmaceutico"
	RoleEstoquista   = "estoquista"
	RoleVendedor     = "vendedor"
)

// CanOverrideExpiredLots roles que pueden autorizar salidas desde lotes vencidos.
func CanOverrideExpiredLots(role string) bool {
	return role == RoleAdmin || role == RoleFarmaceutico
}

// CanApproveMovements roles que aprueban o rechazan movimientos pendientes.
func CanApproveMovements(role string) bool {
	return role == RoleAdmin || role == RoleFarmaceutico
}
