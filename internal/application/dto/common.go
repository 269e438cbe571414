package dto

// PageRequest paginación para listados (estilo page/page_size de la UI).
type PageRequest struct {
	Page     int `query:"page" validate:"min=0"`
	PageSize int `query:"page_size" validate:"min=0,max=100"`
}

// DefaultPage aplica valores por defecto si Page/PageSize son cero.
func (p *PageRequest) DefaultPage() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 10
	}
}

// Offset devuelve el offset SQL equivalente.
func (p PageRequest) Offset() int { return (p.Page - 1) * p.PageSize }

// ListResponse envelope de paginación: count es el total de filas que
// coinciden con el filtro, no el tamaño de la página.
type ListResponse struct {
	Count   int `json:"count"`
	Results any `json:"results"`
}

// ErrorResponse cuerpo de error HTTP. La UI muestra el campo error tal cual.
type ErrorResponse struct {
	Error string `json:"error"`
}
