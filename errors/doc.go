/*
Package errors implements coded errors for the streamfi ledger.

Every failure surfaced to a caller wraps one of the root errors declared in
this package (or registered by an extension). Test for a kind with the Is
method:

	if errors.ErrNotFound.Is(err) { ... }

Use Wrap and Wrapf to attach context while preserving the root cause and the
stack trace of the innermost wrap.
*/
package errors
