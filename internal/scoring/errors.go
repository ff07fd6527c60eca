package scoring

import "fmt"

// Kind classifies scoring failures.
type Kind string

const (
	KindConfigurationMissing Kind = "configuration_missing"
	KindInvalidInput         Kind = "invalid_input"
	KindNoCandidates         Kind = "no_candidates"
)

// Error is returned by Score and Match. Errors of the same Kind match under errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrConfigurationMissing = &Error{Kind: KindConfigurationMissing, Message: "diagnosis catalog is not configured"}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput, Message: "no answers supplied"}
	ErrNoCandidates         = &Error{Kind: KindNoCandidates, Message: "no archetypes to match against"}
)
