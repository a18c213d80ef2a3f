package errors

import (
	"fmt"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestErrorIs(t *testing.T) {
	cases := map[string]struct {
		kind    *Error
		err     error
		wantHit bool
	}{
		"un-wrapped root error matches itself": {
			kind:    ErrNotFound,
			err:     ErrNotFound,
			wantHit: true,
		},
		"wrapped error matches the root": {
			kind:    ErrNotFound,
			err:     Wrap(ErrNotFound, "stream 42"),
			wantHit: true,
		},
		"deeply wrapped error matches the root": {
			kind:    ErrState,
			err:     Wrap(Wrap(ErrState, "inner"), "outer"),
			wantHit: true,
		},
		"different root does not match": {
			kind:    ErrNotFound,
			err:     Wrap(ErrState, "stream 42"),
			wantHit: false,
		},
		"stdlib error does not match": {
			kind:    ErrNotFound,
			err:     fmt.Errorf("not found"),
			wantHit: false,
		},
		"nil kind matches nil error": {
			kind:    nil,
			err:     nil,
			wantHit: true,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := tc.kind.Is(tc.err); got != tc.wantHit {
				t.Fatalf("want %v, got %v", tc.wantHit, got)
			}
		})
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if err := Wrap(nil, "whatever"); err != nil {
		t.Fatalf("want nil, got %+v", err)
	}
}

func TestWrapMessageChain(t *testing.T) {
	err := Wrap(Wrap(ErrEmptyClaim, "recipient A"), "stream 1")
	const want = "stream 1: recipient A: nothing to claim"
	if got := err.Error(); got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
}

func TestWrapAttachesStackTraceOnce(t *testing.T) {
	err := Wrap(ErrInput, "first")
	if stackTrace(err) == nil {
		t.Fatal("no stack trace attached")
	}
	// A second wrap must not shadow the original trace.
	outer := Wrap(err, "second")
	if fmt.Sprintf("%+v", outer) == outer.Error() {
		t.Fatal("verbose format lost the stack trace")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("panic expected")
		}
	}()
	Register(2, "duplicate of unauthorized")
}

func TestRecover(t *testing.T) {
	var err error
	func() {
		defer Recover(&err)
		panic("oops")
	}()
	if !ErrPanic.Is(err) {
		t.Fatalf("want ErrPanic, got %+v", err)
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Fatalf("panic message lost: %q", err)
	}
}

func TestIsUnwrapsPkgErrors(t *testing.T) {
	err := pkgerrors.WithMessage(Wrap(ErrDatabase, "bolt"), "outer")
	if !ErrDatabase.Is(err) {
		t.Fatalf("cause chain not followed: %+v", err)
	}
}
