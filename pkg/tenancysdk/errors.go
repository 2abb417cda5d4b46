package tenancysdk

import "fmt"

// Stable error codes returned in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeUnauthorized   = "unauthorized"
	ErrorCodeForbidden      = "forbidden"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeCodeNotFound   = "code_not_found"
	ErrorCodeCodeRevoked    = "code_revoked"
	ErrorCodeCodeExpired    = "code_expired"
	ErrorCodeCodeExhausted  = "code_exhausted"
	ErrorCodeServerError    = "server_error"
)

// APIError is a non-2xx response from the tenancy service.
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// Code is the stable error code from the response body.
	Code string

	// Description is the human-readable description from the response body.
	Description string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("tenancy api error (%d) %s: %s", e.StatusCode, e.Code, e.Description)
}
