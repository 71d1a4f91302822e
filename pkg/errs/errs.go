// Package errs holds the failure types that abort a pipeline run. Every type names the
// column, class or component that caused it so the message alone identifies the problem.
package errs

import "fmt"

// DataIntegrityError reports a missing required column or a value that cleaning should
// have made impossible.
type DataIntegrityError struct {
	Column string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error in column %q: %s", e.Column, e.Reason)
}

// InvalidSplitError reports a class too small to be stratified.
type InvalidSplitError struct {
	Class string
	Count int
}

func (e *InvalidSplitError) Error() string {
	return fmt.Sprintf("cannot stratify: class %q has %d member(s), at least 2 required", e.Class, e.Count)
}

// InsufficientNeighborsError reports a minority class without enough members to
// interpolate from.
type InsufficientNeighborsError struct {
	Class    string
	Count    int
	Required int
}

func (e *InsufficientNeighborsError) Error() string {
	return fmt.Sprintf("cannot oversample class %q: %d member(s), %d required", e.Class, e.Count, e.Required)
}

// NotFittedError reports use of a component before Fit.
type NotFittedError struct {
	Component string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s used before fit", e.Component)
}

// EmptyCategoryError reports a statistic requested over zero values.
type EmptyCategoryError struct {
	Column string
}

func (e *EmptyCategoryError) Error() string {
	return fmt.Sprintf("no values to compute statistic for column %q", e.Column)
}
