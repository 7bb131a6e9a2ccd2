package dto

// RequestAdvisoryRequest is a student asking an advisor for supervision.
type RequestAdvisoryRequest struct {
	AdvisorMatricula string `json:"matricula_asesor" binding:"required,matricula"`
}

// ResolveAdvisoryRequest accepts or declines a pending request.
type ResolveAdvisoryRequest struct {
	Accept bool `json:"aceptar"`
}
