package domain

import "errors"

// ErrUnsupportedProvider is the validation failure for a model whose provider is
// not one of Providers.
var ErrUnsupportedProvider = &ValidationError{Message: "Unsupported model provider"}

// ChatRequest is built fresh for every send and never persisted.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Model    Model     `json:"model"`
	Tools    []Tool    `json:"tools"`
	Stream   bool      `json:"stream,omitempty"`
}

// ValidationError reports a structurally invalid chat request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// Validate checks the request shape before any provider is contacted.
func (r ChatRequest) Validate() error {
	if !r.Model.Provider.Valid() {
		return ErrUnsupportedProvider
	}
	if r.Model.Name == "" {
		return &ValidationError{Message: "model name is required"}
	}
	if len(r.Messages) == 0 {
		return &ValidationError{Message: "messages are required"}
	}
	return nil
}
