package cmderr

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseRegister,
				Kind:   KindLateRegistration,
				Class:  "com/example/Widget",
				Member: "count",
				Detail: "registered after finish",
			},
			contains: []string{"[register]", "late_registration", "com/example/Widget.count", "registered after finish"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseScan,
				Kind:  KindMissingClass,
			},
			contains: []string{"[scan]", "missing_class"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseScan,
				Kind:   KindIOFailure,
				Class:  "com/example/Widget",
				Detail: "reading class file",
				Cause:  errors.New("permission denied"),
			},
			contains: []string{"[scan]", "io_failure", "com/example/Widget", "caused by", "permission denied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Phase: PhaseScan, Kind: KindIOFailure, Cause: cause}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{Phase: PhaseRegister, Kind: KindLateRegistration, Class: "foo"}

	if !err.Is(&Error{Phase: PhaseRegister, Kind: KindLateRegistration}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseScan, Kind: KindLateRegistration}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseRegister, Kind: KindMissingClass}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseRegister, Kind: KindLateRegistration}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDispatch, KindUnsupportedType).
		Class("com/example/Widget").
		Member("values()[LWidget;").
		Cause(cause).
		Detail("array of %s element kind", "unknown").
		Build()

	if err.Phase != PhaseDispatch {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDispatch)
	}
	if err.Kind != KindUnsupportedType {
		t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupportedType)
	}
	if err.Class != "com/example/Widget" {
		t.Errorf("Class = %v, want com/example/Widget", err.Class)
	}
	if err.Member != "values()[LWidget;" {
		t.Errorf("Member = %v", err.Member)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "array of unknown element kind" {
		t.Errorf("Detail = %v, want 'array of unknown element kind'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("MissingClass", func(t *testing.T) {
		err := MissingClass("com/example/Widget")
		if err.Kind != KindMissingClass {
			t.Errorf("Kind = %v, want %v", err.Kind, KindMissingClass)
		}
		if err.Phase != PhaseScan {
			t.Errorf("Phase = %v, want %v", err.Phase, PhaseScan)
		}
		if err.Class != "com/example/Widget" {
			t.Errorf("Class = %v", err.Class)
		}
	})

	t.Run("MissingImplementation", func(t *testing.T) {
		err := MissingImplementation("com/example/Greeter", "greet()V")
		if err.Kind != KindMissingImplementation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindMissingImplementation)
		}
		if err.Class != "com/example/Greeter" || err.Member != "greet()V" {
			t.Errorf("Class/Member = %v/%v", err.Class, err.Member)
		}
	})

	t.Run("LateRegistration", func(t *testing.T) {
		err := LateRegistration(PhaseRegister, "com/example/Widget")
		if err.Kind != KindLateRegistration {
			t.Errorf("Kind = %v, want %v", err.Kind, KindLateRegistration)
		}
		if !strings.Contains(err.Detail, "com/example/Widget") {
			t.Errorf("Detail = %v, want mention of offender", err.Detail)
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		err := UnsupportedType(PhaseEmit, "array of unknown element kind")
		if err.Kind != KindUnsupportedType {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupportedType)
		}
		if err.Detail != "array of unknown element kind" {
			t.Errorf("Detail = %v", err.Detail)
		}
	})

	t.Run("IOFailure", func(t *testing.T) {
		cause := errors.New("disk error")
		err := IOFailure("com/example/Widget", cause)
		if err.Kind != KindIOFailure {
			t.Errorf("Kind = %v, want %v", err.Kind, KindIOFailure)
		}
		if !errors.Is(err.Cause, cause) {
			t.Errorf("Cause = %v, want %v", err.Cause, cause)
		}
	})
}
