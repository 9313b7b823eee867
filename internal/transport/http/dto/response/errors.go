package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrNotFound = ErrorResponse{
		Status:  "error",
		Error:   "not_found",
		Details: "The requested resource was not found",
	}

	ErrForbidden = ErrorResponse{
		Status:  "error",
		Error:   "forbidden",
		Details: "Staff access required",
	}

	ErrInternal = ErrorResponse{
		Status:  "error",
		Error:   "internal_error",
		Details: "Internal server error",
	}
)
