package model

// ResponseStatus is the terminal outcome recorded in a response file.
type ResponseStatus string

const (
	ResponseSuccess ResponseStatus = "success"
	ResponseError   ResponseStatus = "error"
)

// ErrorType classifies terminal failures in response records.
type ErrorType string

const (
	ErrTypeValidation ErrorType = "validation_error"
	ErrTypeDuplicate  ErrorType = "duplicate_error"
	ErrTypeAPI        ErrorType = "api_error"
	ErrTypeRateLimit  ErrorType = "rate_limit_error"
	ErrTypeAuth       ErrorType = "auth_error"
	ErrTypeUnknown    ErrorType = "unknown_error"
)

// ErrorInfo is the structured error carried by an error response.
type ErrorInfo struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ResponseRecord is the immutable outcome artifact, one per terminal job.
// Exactly one of Data and Error is non-nil: Data for success, Error otherwise.
type ResponseRecord struct {
	RequestOrderID *string        `json:"request_order_id"`
	AgentID        string         `json:"agent_id"`
	ClientOrderID  string         `json:"client_order_id"`
	Timestamp      string         `json:"timestamp"` // RFC 3339 UTC, time of writing
	Status         ResponseStatus `json:"status"`
	Data           any            `json:"data"`
	Error          *ErrorInfo     `json:"error"`
}
