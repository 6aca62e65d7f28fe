package http

// APIResponse represents standard API response.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code" example:"VALIDATION_ERROR"`
	Field   string                 `json:"field,omitempty" example:"placeId"`
	Message string                 `json:"message" example:"placeId is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

