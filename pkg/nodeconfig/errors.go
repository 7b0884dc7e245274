package nodeconfig

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every error returned by this package matches exactly one of
// these with errors.Is.
var (
	// ErrMalformedValue means a raw value could not be coerced to the field's type.
	ErrMalformedValue = errors.New("malformed config value")
	// ErrInvalidConfig means a cross-field rule of the record type was violated.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrMergeMismatch means two records (or two values) of incompatible shape were merged.
	ErrMergeMismatch = errors.New("config merge mismatch")
)

// ValidationError is the structured failure for malformed values and rule violations.
type ValidationError struct {
	// Resource is the identity of the owning resource, when the caller knows it.
	Resource string
	// Type is the record type name, e.g. "SnapshotConfig".
	Type string
	// Fields are the offending fields.
	Fields []string
	// Value is the offending value, if a single one is to blame.
	Value any
	// Message is the human-readable explanation.
	Message string

	kind  error
	cause error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Resource != "" {
		fmt.Fprintf(&b, "%s: ", e.Resource)
	}
	if e.Type != "" {
		fmt.Fprintf(&b, "%s: ", e.Type)
	}
	b.WriteString(e.Message)
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Unwrap exposes both the category and the underlying cause.
func (e *ValidationError) Unwrap() []error {
	errs := []error{e.kind}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

func invalid(t *RecordType, msg string, fields ...string) *ValidationError {
	return &ValidationError{Type: t.Name, Fields: fields, Message: msg, kind: ErrInvalidConfig}
}

func invalidValue(t *RecordType, value any, msg string, fields ...string) *ValidationError {
	e := invalid(t, msg, fields...)
	e.Value = value
	return e
}

func malformed(t *RecordType, cause error, msg string, fields ...string) *ValidationError {
	return &ValidationError{Type: t.Name, Fields: fields, Message: msg, kind: ErrMalformedValue, cause: cause}
}

// WithResource attaches a resource identity to a ValidationError anywhere in err's chain.
// Other errors are wrapped with the identity as a prefix.
func WithResource(err error, resource string) error {
	if err == nil || resource == "" {
		return err
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		if ve.Resource == "" {
			cp := *ve
			cp.Resource = resource
			return &cp
		}
		return err
	}
	return fmt.Errorf("%s: %w", resource, err)
}
