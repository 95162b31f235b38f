package patient

import (
	"net/url"
	"strings"
)

// FieldError is a domain violation on a single field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field that fell outside its domain.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "invalid patient record: " + strings.Join(parts, "; ")
}

// For returns the message recorded for a field, if any.
func (e *ValidationError) For(field string) string {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

func (e *ValidationError) add(field, msg string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// FromForm builds a record from submitted control values. Absent controls
// keep their default. The returned record always holds the defaults for any
// field that failed, so the form can be re-rendered alongside the error.
func FromForm(values url.Values) (Record, error) {
	rec := Default()
	verr := &ValidationError{}
	for _, f := range fields {
		raw, ok := values[f.Name]
		if !ok || len(raw) == 0 {
			continue
		}
		if err := f.assign(&rec, raw[0]); err != nil {
			verr.add(f.Name, err.Error())
		}
	}
	return rec, verr.orNil()
}

// Values is the inverse of FromForm.
func (r Record) Values() url.Values {
	values := url.Values{}
	for _, cell := range r.Cells() {
		values.Set(cell.Column, cell.Value)
	}
	return values
}
