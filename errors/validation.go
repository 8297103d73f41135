package errors

import (
	"fmt"
	"strings"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects form errors detected before a request reaches the store.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (v *ValidationError) Add(field, format string, args ...any) {
	v.Fields = append(v.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// Err returns nil when no field failed validation.
func (v *ValidationError) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	msgs := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v *ValidationError) Unwrap() error {
	return BadRequest
}
