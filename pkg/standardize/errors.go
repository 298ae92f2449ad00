package standardize

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError with errors.Is
var ErrValidation = errors.New("image validation failed")

// Reason classifies why an input was rejected
type Reason string

const (
	ReasonUndecodable          Reason = "undecodable"
	ReasonDimensionsOutOfRange Reason = "dimensions_out_of_range"
)

// ValidationError reports an input that cannot be analyzed. It is the only fatal
// domain error of the pipeline.
type ValidationError struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid image (%s)", e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrValidation) succeed for any validation error
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
