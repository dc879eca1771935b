package hfocore

import "fmt"

// ValidationError reports malformed or inconsistent input: missing fields,
// shape mismatches, out-of-range parameters. Always fatal.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func validationf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// DomainError reports inputs that are well-formed but outside the domain the
// pipeline is defined on, such as an event channel that belongs to no group
// or a filter design that degenerates at low sampling rates. Always fatal.
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string {
	return e.Msg
}

func domainf(format string, args ...interface{}) error {
	return &DomainError{Msg: fmt.Sprintf(format, args...)}
}
