// SPDX-License-Identifier: GPL-3.0-or-later

package errclass

import (
	"errors"
	"fmt"
)

// kindedError pairs an error with the [Kind] that classifies it.
type kindedError struct {
	kind Kind
	err  error
}

func (e *kindedError) Error() string {
	if e.err == nil {
		return e.kind.String()
	}
	return fmt.Sprintf("%s: %s", e.kind, e.err)
}

func (e *kindedError) Unwrap() error {
	return e.err
}

// Kind implements the interface checked by [KindOf].
func (e *kindedError) Kind() Kind {
	return e.kind
}

// Wrap returns an error reporting kind that wraps err for [errors.Unwrap].
//
// If err is nil, Wrap still returns a non-nil error naming kind alone;
// callers that only want to classify an existing error should use
// [KindOf] instead.
func Wrap(kind Kind, err error) error {
	return &kindedError{kind: kind, err: err}
}

// Errorf is like [Wrap] but builds err from a format string, following
// the same %w conventions as [fmt.Errorf].
func Errorf(kind Kind, format string, args ...any) error {
	return &kindedError{kind: kind, err: fmt.Errorf(format, args...)}
}

// kindCarrier is implemented by errors produced by [Wrap] and [Errorf].
type kindCarrier interface {
	Kind() Kind
}

// KindOf returns the [Kind] classifying err.
//
// If err (or something it wraps) was produced by [Wrap] or [Errorf],
// KindOf returns that kind. Otherwise it falls back to classifying the
// raw errno/network-error shape of err via [New]: ETIMEDOUT and
// ECANCELED map to [KindTimeout]; EOF, ECONNRESET, and ECONNABORTED map
// to [KindShutdown] (the peer went away); every other recognized or
// unrecognized error maps to [KindNetwork]. KindOf returns [KindUnknown]
// only for a nil err.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var kc kindCarrier
	if errors.As(err, &kc) {
		return kc.Kind()
	}
	switch New(err) {
	case ETIMEDOUT, ECANCELED:
		return KindTimeout
	case EOF, ECONNRESET, ECONNABORTED:
		return KindShutdown
	default:
		return KindNetwork
	}
}
