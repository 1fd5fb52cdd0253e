package models

// APIError is the machine-readable error payload returned by the server.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// MetricsResponse aggregates request and token counters per endpoint.
type MetricsResponse struct {
	Requests   map[string]int64 `json:"requests"`
	TokensUsed map[string]int64 `json:"tokens_used"`
}
