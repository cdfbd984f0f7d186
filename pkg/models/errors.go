package models

import (
	"fmt"
	"strings"
)

const (
	ReasonRequired = "required"
	ReasonNegative = "negative"
	ReasonInvalid  = "invalid"
	ReasonTooLarge = "too_large"

	ReasonUnknownLabel = "unknown_label"
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (f FieldError) String() string {
	switch f.Reason {
	case ReasonRequired:
		return f.Field + " is required"
	case ReasonNegative:
		return f.Field + " must not be negative"
	case ReasonTooLarge:
		return f.Field + " is too large"
	case ReasonUnknownLabel:
		return f.Field + " is not a standard label"
	default:
		return f.Field + " is invalid"
	}
}

// ValidationError is returned before any network call when a draft cannot be
// saved.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 && e.Fields[0].Reason == ReasonRequired {
		return fmt.Sprintf("missing required field: %s", e.Fields[0].Field)
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "invalid product: " + strings.Join(parts, "; ")
}

// Missing reports whether field failed the required check.
func (e *ValidationError) Missing(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field && f.Reason == ReasonRequired {
			return true
		}
	}
	return false
}
