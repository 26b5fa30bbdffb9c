// Package cmderr provides the structured error type used across classfile,
// funcmgr, typeman, and compiler.
//
// Errors are categorized by Phase (where compilation was when the error
// occurred) and Kind (the §7 error category). The Error type carries the
// offending name/class and an optional cause chain.
//
// Use the Builder for structured construction:
//
//	err := cmderr.New(cmderr.PhaseRegister, cmderr.KindLateRegistration).
//		Class("com/example/Widget").
//		Detail("registerType called after finish").
//		Build()
//
// Or use the convenience constructors for the five kinds named by the error
// handling design:
//
//	err := cmderr.MissingClass("com/example/Widget")
//	err := cmderr.MissingImplementation("com/example/Greeter", "greet()V")
//
// All errors implement the standard error interface and support errors.Is.
package cmderr

import (
	"fmt"
	"strings"
)

// Phase indicates which part of compilation was running when the error
// occurred.
type Phase string

const (
	PhaseScan     Phase = "scan"     // hierarchy scan (C5)
	PhaseRegister Phase = "register" // type/field/lambda registration (C4)
	PhaseDispatch Phase = "dispatch" // dispatch routine synthesis (C6)
	PhaseEmit     Phase = "emit"     // metadata blob emission (C7)
)

// Kind categorizes the error. These are the five kinds named in the error
// handling design: all of them are fatal to the compilation unit.
type Kind string

const (
	KindMissingClass          Kind = "missing_class"
	KindMissingImplementation Kind = "missing_implementation"
	KindLateRegistration      Kind = "late_registration"
	KindUnsupportedType       Kind = "unsupported_type"
	KindIOFailure             Kind = "io_failure"
)

// Error is the structured error type used throughout this module.
type Error struct {
	Phase  Phase
	Kind   Kind
	Class  string // offending class/type name, dotted or slash form
	Member string // offending field/method name, when applicable
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Class != "" {
		b.WriteString(": ")
		b.WriteString(e.Class)
		if e.Member != "" {
			b.WriteByte('.')
			b.WriteString(e.Member)
		}
	}

	if e.Detail != "" {
		if e.Class != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error's Phase and Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New starts a Builder for the given phase and kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

func (b *Builder) Class(name string) *Builder {
	b.err.Class = name
	return b
}

func (b *Builder) Member(name string) *Builder {
	b.err.Member = name
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// MissingClass reports that the class-file loader could not find className.
func MissingClass(className string) *Error {
	return New(PhaseScan, KindMissingClass).
		Class(className).
		Detail("class file not found").
		Build()
}

// MissingImplementation reports that method is marked used on an interface
// but no concrete type in the hierarchy implements it.
func MissingImplementation(interfaceName, method string) *Error {
	return New(PhaseScan, KindMissingImplementation).
		Class(interfaceName).
		Member(method).
		Detail("method is used but has no concrete implementation").
		Build()
}

// LateRegistration reports a registration call that happened after the
// finish latch closed.
func LateRegistration(phase Phase, offender string) *Error {
	return New(phase, KindLateRegistration).
		Detail("registration of %q occurred after finish", offender).
		Build()
}

// UnsupportedType reports an array (or other) type of unknown element kind.
func UnsupportedType(phase Phase, what string) *Error {
	return New(phase, KindUnsupportedType).
		Detail(what).
		Build()
}

// IOFailure wraps a class-file loader I/O error with class context.
func IOFailure(className string, cause error) *Error {
	return New(PhaseScan, KindIOFailure).
		Class(className).
		Detail("reading class file").
		Cause(cause).
		Build()
}
