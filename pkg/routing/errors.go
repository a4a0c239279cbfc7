package routing

import (
	"errors"
	"fmt"
	"strings"
)

// Common routing errors that can be checked with errors.Is().
var (
	// ErrNoMatchingModels is returned when no configured model satisfies
	// the selection criteria.
	ErrNoMatchingModels = errors.New("no models match the selection criteria")

	// ErrInvalidStrategy is returned when an unknown routing strategy is
	// requested.
	ErrInvalidStrategy = errors.New("invalid routing strategy")

	// ErrAllCandidatesFailed is returned when every candidate tried by
	// CompleteWithFallback failed.
	ErrAllCandidatesFailed = errors.New("all candidates failed")
)

// NoMatchingModelsError is returned when the registry has no configured,
// non-deprecated model satisfying the criteria.
type NoMatchingModelsError struct {
	// Strategy is the strategy that ran the selection.
	Strategy string

	// Capabilities are the merged required capabilities.
	Capabilities []string
}

// Error implements the error interface.
func (e *NoMatchingModelsError) Error() string {
	if len(e.Capabilities) == 0 {
		return fmt.Sprintf("no models match the selection criteria (strategy: %s)", e.Strategy)
	}
	return fmt.Sprintf("no models match the selection criteria (strategy: %s, capabilities: %s)",
		e.Strategy, strings.Join(e.Capabilities, ", "))
}

// Is implements error matching for errors.Is().
func (e *NoMatchingModelsError) Is(target error) bool {
	return target == ErrNoMatchingModels
}

// InvalidStrategyError is returned when the requested routing strategy
// is not recognized.
type InvalidStrategyError struct {
	// Strategy is the invalid strategy name.
	Strategy string

	// AvailableStrategies contains the valid strategy names.
	AvailableStrategies []string
}

// Error implements the error interface.
func (e *InvalidStrategyError) Error() string {
	return fmt.Sprintf("invalid routing strategy %q (available strategies: %s)",
		e.Strategy, strings.Join(e.AvailableStrategies, ", "))
}

// Is implements error matching for errors.Is().
func (e *InvalidStrategyError) Is(target error) bool {
	return target == ErrInvalidStrategy
}

// AllCandidatesFailedError is returned when CompleteWithFallback exhausts
// its candidate list without a successful completion.
type AllCandidatesFailedError struct {
	// Attempted contains the provider/model pairs that were tried.
	Attempted []string

	// LastError is the error from the last attempted candidate.
	LastError error
}

// Error implements the error interface.
func (e *AllCandidatesFailedError) Error() string {
	return fmt.Sprintf("all candidates failed (attempted: %s, last error: %v)",
		strings.Join(e.Attempted, ", "), e.LastError)
}

// Is implements error matching for errors.Is().
func (e *AllCandidatesFailedError) Is(target error) bool {
	return target == ErrAllCandidatesFailed
}

// Unwrap returns the wrapped error for error chain traversal.
func (e *AllCandidatesFailedError) Unwrap() error {
	return e.LastError
}
