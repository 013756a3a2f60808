package models

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation
type Kind string

// Kind constants
const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindEligibility Kind = "eligibility"
	KindBudget      Kind = "budget"
	KindConflict    Kind = "conflict"
	KindState       Kind = "state"
	KindForbidden   Kind = "forbidden"
	KindInternal    Kind = "internal"
)

// Error is a business rejection. Store failures are plain wrapped errors.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrItemNotFound   = &Error{Kind: KindNotFound, Message: "item not found"}
	ErrBidderNotFound = &Error{Kind: KindNotFound, Message: "bidder not found"}
	ErrBandNotFound   = &Error{Kind: KindNotFound, Message: "band not found"}
	ErrDrawNotFound   = &Error{Kind: KindNotFound, Message: "draw not found or expired"}
	ErrItemSold       = &Error{Kind: KindConflict, Message: "item already sold"}
	ErrItemNotSold    = &Error{Kind: KindState, Message: "item is not sold"}
	ErrBidderExists   = &Error{Kind: KindConflict, Message: "bidder name already exists"}
	ErrBandExists     = &Error{Kind: KindConflict, Message: "band value already exists"}
	ErrForbidden      = &Error{Kind: KindForbidden, Message: "admin role required"}
)

func newError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error  { return newError(KindValidation, format, args...) }
func NotFoundf(format string, args ...any) error    { return newError(KindNotFound, format, args...) }
func Eligibilityf(format string, args ...any) error { return newError(KindEligibility, format, args...) }
func Budgetf(format string, args ...any) error      { return newError(KindBudget, format, args...) }
func Statef(format string, args ...any) error       { return newError(KindState, format, args...) }

// KindOf returns the kind of a business error, or KindInternal for anything else
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
