package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrProfileNotFound = errors.New("profile not bound")
	ErrNoBaseline      = errors.New("no snapshot old enough for requested offset")
	ErrNoActivity      = errors.New("baseline snapshot has no recorded plays")
	ErrAssetNotFound   = errors.New("asset not found")
	ErrInvalidOpacity  = errors.New("opacity must be a multiple of 5 between 0 and 100")
	ErrInvalidMode     = errors.New("mode must be between 0 and 3")
	ErrInvalidDays     = errors.New("day offset must be between 0 and 3650")
	ErrEmptySign       = errors.New("sign must not be empty")
	ErrInvalidEdgeSlot = errors.New("edge slot must be between 0 and 2")
)

// UpstreamError is any non-success answer (or transport failure) from the
// stats API other than "no such account". Status is 0 when no response was
// received.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream error (status %d)", e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

type NormalizationError struct {
	Field string
	Value string
	Err   error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("field %s: cannot normalize %q: %v", e.Field, e.Value, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}
