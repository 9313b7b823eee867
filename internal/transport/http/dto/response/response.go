package response

import "blogcore/internal/domain/models"

type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Status string              `json:"status"`
	Error  string              `json:"error"`
	Fields []models.FieldError `json:"fields"`
}

func SuccessResponse(data interface{}) Response {
	return Response{
		Status: "success",
		Data:   data,
	}
}

func ErrorResponseWithDetails(err, details string) ErrorResponse {
	return ErrorResponse{
		Status:  "error",
		Error:   err,
		Details: details,
	}
}

func NewValidationErrorResponse(ve *models.ValidationError) ValidationErrorResponse {
	return ValidationErrorResponse{
		Status: "error",
		Error:  "validation_failed",
		Fields: ve.Fields,
	}
}
