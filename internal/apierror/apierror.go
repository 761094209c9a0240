// Package apierror is the JSON body of every non-2xx answer of the closing
// API. Handlers put a message a cashier can read in Detail; driver and
// stack detail never reach it.
package apierror

// APIError is {"detail": "..."}.
type APIError struct {
	Detail string `json:"detail"`
}

func New(detalle string) *APIError {
	return &APIError{Detail: detalle}
}

// ValidationError adds the offending fields, keyed by JSON name, to a 422.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

// NewValidation reports campos, a JSON field name to message map.
func NewValidation(campos map[string]string) *ValidationError {
	return &ValidationError{Detail: "Hay campos del cierre con errores", Fields: campos}
}
