package projects

import "errors"

var (
	ErrNotFound   = errors.New("project not found")
	ErrSlugExists = errors.New("slug already exists")
)

type ValidationError struct {
	Field   string
	Message string
	Details map[string]string
}

func (e *ValidationError) Error() string {
	return "field " + e.Field + " " + e.Message
}

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "is required", Details: map[string]string{field: "required"}}
}
