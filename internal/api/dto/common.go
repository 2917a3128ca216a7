package dto

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CreatedResponse acknowledges a write that clients only need the id of.
type CreatedResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// ListResponse wraps collection results with their length.
type ListResponse struct {
	Data  interface{} `json:"data"`
	Count int         `json:"count"`
}
