package http

// APIResponse represents standard API response.
type APIResponse struct {
	Success bool   `json:"success"`
	Status  int    `json:"status" example:"200"`
	Message string `json:"message" example:"OK"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string         `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string         `json:"field,omitempty" example:"date_from"`
	Message string         `json:"message,omitempty" example:"date_from is required"`
	Params  map[string]any `json:"params,omitempty"`
}
