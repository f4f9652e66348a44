package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid model configuration")
	// ErrOutOfRange is matched by every *OutOfRangeError.
	ErrOutOfRange = errors.New("probability out of range")
	// ErrMissingLikelihoods is matched by every *MissingLikelihoodsError.
	ErrMissingLikelihoods = errors.New("missing likelihood table")
	// ErrShortWindow signals a caller precondition violation.
	ErrShortWindow = errors.New("window shorter than model")
)

// ConfigurationError reports an invalid constructor argument.
type ConfigurationError struct {
	Field string
	Value any
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid model configuration: %s=%v", e.Field, e.Value)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// OutOfRangeError reports a likelihood or posterior outside [0,1] (or NaN).
// It points at a corrupt likelihood table rather than at the input data.
type OutOfRangeError struct {
	Binder   BinderID
	Quantity string
	Value    float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s out of range for %s: %v", e.Quantity, e.Binder, e.Value)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// MissingLikelihoodsError reports a likelihood source with no tables for a binder.
type MissingLikelihoodsError struct {
	Binder BinderID
}

func (e *MissingLikelihoodsError) Error() string {
	return fmt.Sprintf("no likelihood tables for %s", e.Binder)
}

func (e *MissingLikelihoodsError) Is(target error) bool { return target == ErrMissingLikelihoods }

// ScoringError attaches model identity to a failure raised while scoring.
//
// The original underlying error can be accessed via errors.Unwrap.
type ScoringError struct {
	Binder BinderID
	Name   string
	Err    error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring %s (%s): %v", e.Name, e.Binder, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }
