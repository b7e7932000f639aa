package dto

// MaxPageSize tamaño máximo de página en los listados.
const MaxPageSize = 100

// PageRequest paginación para listados (page empieza en 1).
type PageRequest struct {
	Page int `query:"page"`
	Size int `query:"size"`
}

// DefaultPage aplica valores por defecto y el tope de tamaño.
func (p *PageRequest) DefaultPage() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = 20
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Violations interface{} `json:"violations,omitempty"`
}
