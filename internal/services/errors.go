package services

// Typed service errors; handlers map these onto HTTP statuses.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// UnavailableError marks an upstream model failure the client may retry.
type UnavailableError struct{ Message string }

func (e *UnavailableError) Error() string { return e.Message }
