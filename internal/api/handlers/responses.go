package handlers

type ErrorResponse struct {
	Error string `json:"error" example:"stream not found"`
}

type SuccessResponse struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message,omitempty"`
}
