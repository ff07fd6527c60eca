package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// FieldError is a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every problem found in a catalog.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("catalog validation failed:")
	for i, e := range ve.Errors {
		fmt.Fprintf(&sb, " %d. %s: %s;", i+1, e.Field, e.Message)
	}
	return sb.String()
}

// Validate checks score ranges and required names. Axis names, question IDs
// and archetype IDs must be unique; empty values are left to AssignIDs.
func (c *Catalog) Validate() error {
	ve := &ValidationError{}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate catalog: %w", err)
		}
		for _, fe := range verrs {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   strings.TrimPrefix(fe.Namespace(), "Catalog."),
				Message: describe(fe),
			})
		}
	}

	names := make([]string, len(c.Axes))
	for i, a := range c.Axes {
		names[i] = a.Name
	}
	ve.Errors = append(ve.Errors, duplicates("Axes[%d].Name", "axis name", names)...)

	qids := make([]string, len(c.Questions))
	for i, q := range c.Questions {
		qids[i] = q.ID
	}
	ve.Errors = append(ve.Errors, duplicates("Questions[%d].ID", "question id", qids)...)

	aids := make([]string, len(c.Archetypes))
	for i, a := range c.Archetypes {
		aids[i] = a.ID
	}
	ve.Errors = append(ve.Errors, duplicates("Archetypes[%d].ID", "archetype id", aids)...)

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// duplicates reports every repeat of a non-empty value after its first use.
func duplicates(field, kind string, values []string) []FieldError {
	var out []FieldError
	seen := make(map[string]bool, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		if seen[v] {
			out = append(out, FieldError{
				Field:   fmt.Sprintf(field, i),
				Message: "duplicate " + kind + " " + v,
			})
		}
		seen[v] = true
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
