// Package errdefs defines the error kinds surfaced while generating systems.
//
// Every failure is an *Error with a Kind and, when known, the definition
// file location that caused it. Use the Is* predicates rather than
// comparing messages.
package errdefs

import (
	"errors"
	"fmt"

	"github.com/thepwagner/clrm/location"
)

type Kind int

const (
	// KindGenerate is any runtime failure while executing commands.
	KindGenerate Kind = iota
	// KindParse is a lexical or grammatical problem in a definition file,
	// an unknown command or a failed argument validation.
	KindParse
	// KindSubstitution is a ${NAME} placeholder without a binding.
	KindSubstitution
	// KindSystemNotFound is a system without a definition file.
	KindSystemNotFound
	// KindPreflight is a required external tool missing at startup.
	KindPreflight
	// KindContext is a missing or malformed staging workspace.
	KindContext
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindSubstitution:
		return "SubstitutionError"
	case KindSystemNotFound:
		return "SystemNotFoundError"
	case KindPreflight:
		return "PreflightError"
	case KindContext:
		return "ContextError"
	default:
		return "GenerateError"
	}
}

type Error struct {
	Kind     Kind
	Location *location.Location
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Location != nil && e.Location.IsValid() {
		return fmt.Sprintf("%s: %s", e.Location.Short(), msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, loc *location.Location, format string, args ...interface{}) *Error {
	e := &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
	if loc != nil {
		l := *loc
		e.Location = &l
	}
	return e
}

func Generate(loc *location.Location, format string, args ...interface{}) error {
	return newError(KindGenerate, loc, format, args...)
}

func Parse(loc *location.Location, format string, args ...interface{}) error {
	return newError(KindParse, loc, format, args...)
}

func Substitution(loc *location.Location, format string, args ...interface{}) error {
	return newError(KindSubstitution, loc, format, args...)
}

func SystemNotFound(system string) error {
	return newError(KindSystemNotFound, nil, "system %q not found", system)
}

func Preflight(format string, args ...interface{}) error {
	return newError(KindPreflight, nil, format, args...)
}

func Context(format string, args ...interface{}) error {
	return newError(KindContext, nil, format, args...)
}

// Wrap turns err into a GenerateError at loc, keeping the kind and
// location of an *Error already in the chain.
func Wrap(loc *location.Location, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return WithLocation(err, loc)
	}
	ret := newError(KindGenerate, loc, format, args...)
	ret.Err = err
	return ret
}

// WithLocation attaches loc to err unless err already carries a location.
func WithLocation(err error, loc *location.Location) error {
	if err == nil || loc == nil {
		return err
	}
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: KindGenerate, Location: locPtr(*loc), Err: err}
	}
	if e.Location != nil && e.Location.IsValid() {
		return err
	}
	cp := *e
	cp.Location = locPtr(*loc)
	return &cp
}

func locPtr(l location.Location) *location.Location {
	return &l
}

// KindOf returns the kind of the first *Error in err's chain.
// Errors from outside this package count as KindGenerate.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGenerate
}

func is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsGenerate(err error) bool       { return is(err, KindGenerate) }
func IsParse(err error) bool          { return is(err, KindParse) }
func IsSubstitution(err error) bool   { return is(err, KindSubstitution) }
func IsSystemNotFound(err error) bool { return is(err, KindSystemNotFound) }
func IsPreflight(err error) bool      { return is(err, KindPreflight) }
func IsContext(err error) bool        { return is(err, KindContext) }

// Format renders err for the user:
// "Error in <file>:<line>: <message>" or "Error: <message>".
func Format(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Sprintf("Error: %v", err)
	}
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Location != nil && e.Location.IsValid() {
		return fmt.Sprintf("Error in %s: %s", e.Location.Short(), msg)
	}
	return fmt.Sprintf("Error: %s", msg)
}
