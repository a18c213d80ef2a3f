package streamfi

import (
	"context"

	"github.com/streamfi/streamfi/errors"
)

type contextKey int

const (
	contextKeySigner contextKey = iota
	contextKeyNow
)

// WithSigner returns a context carrying the identity that authorizes the
// operation. The caller identification layer (outside of this module) is
// responsible for verifying the identity before attaching it.
func WithSigner(ctx context.Context, addr Address) context.Context {
	return context.WithValue(ctx, contextKeySigner, addr)
}

// Signer returns the identity attached to the context, or nil if none.
func Signer(ctx context.Context) Address {
	addr, _ := ctx.Value(contextKeySigner).(Address)
	return addr
}

// MustSigner returns the identity attached to the context, failing with
// ErrUnauthorized when there is none.
func MustSigner(ctx context.Context) (Address, error) {
	addr := Signer(ctx)
	if addr == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	if err := addr.Validate(); err != nil {
		return nil, errors.Wrap(err, "signer")
	}
	return addr, nil
}

// WithNow returns a context carrying the operation time. All accrual and
// dueness computations within a single operation observe this one value, so
// results are re-derivable regardless of how long the operation takes.
func WithNow(ctx context.Context, t UnixTime) context.Context {
	return context.WithValue(ctx, contextKeyNow, t)
}

// Now returns the operation time attached to the context.
func Now(ctx context.Context) (UnixTime, error) {
	t, ok := ctx.Value(contextKeyNow).(UnixTime)
	if !ok {
		return 0, errors.Wrap(errors.ErrHuman, "operation time not set")
	}
	return t, nil
}

// InThePast returns true if given time is in the past as compared to the
// operation time attached to the context.
func InThePast(ctx context.Context, t UnixTime) bool {
	now, err := Now(ctx)
	if err != nil {
		return false
	}
	return t < now
}
