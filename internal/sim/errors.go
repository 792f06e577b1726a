package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrCountMismatch indicates the number of particle records differs from
	// the count declared in the header. No steps are run in that case.
	ErrCountMismatch = errors.New("fluidsim: particle count does not match header")

	ErrInvalidSteps = errors.New("fluidsim: step count must not be negative")

	// ErrInvalidState indicates a particle position or acceleration became
	// NaN or Inf.
	ErrInvalidState = errors.New("fluidsim: invalid particle state (NaN or Inf detected)")
)

// StepError wraps an error with the step and particle it occurred at.
type StepError struct {
	Step     int
	Particle int
	Wrapped  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d, particle %d: %v", e.Step, e.Particle, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
