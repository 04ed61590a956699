// Package rerr provides the repository's structured error taxonomy.
package rerr

import (
	"errors"
	"fmt"
)

// RepoError is a contextual wrapper, the same shape the codec and
// hierarchy manager use everywhere a lower-level error needs a
// breadcrumb about where it was encountered.
type RepoError struct {
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *RepoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *RepoError) Unwrap() error {
	return e.Cause
}

// Wrap creates a contextual error, or returns nil if cause is nil.
func Wrap(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &RepoError{Context: context, Cause: cause}
}

// CorruptBundle reports a malformed bundle byte stream, fatal for the
// bundle being decoded.
type CorruptBundle struct {
	Reason string
	Offset int64
}

func (e *CorruptBundle) Error() string {
	return fmt.Sprintf("corrupt bundle at offset %d: %s", e.Offset, e.Reason)
}

// BlobIoError reports a failure interacting with a BlobStore.
type BlobIoError struct {
	Context string
	Cause   error
}

func (e *BlobIoError) Error() string {
	return fmt.Sprintf("blob io error (%s): %v", e.Context, e.Cause)
}

func (e *BlobIoError) Unwrap() error {
	return e.Cause
}

// NoSuchItemState reports that an ItemStateManager has no state for an id.
type NoSuchItemState struct {
	ID string
}

func (e *NoSuchItemState) Error() string {
	return fmt.Sprintf("no such item state: %s", e.ID)
}

// IsNoSuchItemState reports whether err is (or wraps) a NoSuchItemState,
// the hierarchy manager's signal to treat a lookup miss as "no such
// path" rather than propagate an error (spec.md §7).
func IsNoSuchItemState(err error) bool {
	var target *NoSuchItemState
	return errors.As(err, &target)
}

// ItemStateError reports an ItemStateManager-internal failure.
type ItemStateError struct {
	Context string
	Cause   error
}

func (e *ItemStateError) Error() string {
	return fmt.Sprintf("item state error (%s): %v", e.Context, e.Cause)
}

func (e *ItemStateError) Unwrap() error {
	return e.Cause
}

// CyclicDefinitions reports a cycle in privilege aggregate definitions.
type CyclicDefinitions struct {
	Path []string
}

func (e *CyclicDefinitions) Error() string {
	return fmt.Sprintf("cyclic privilege definitions: %v", e.Path)
}

// DuplicateName reports a name already registered where uniqueness is required.
type DuplicateName struct {
	Name string
}

func (e *DuplicateName) Error() string {
	return fmt.Sprintf("duplicate name: %s", e.Name)
}

// EquivalentDefinitions reports two privileges sharing a non-empty leaf set.
type EquivalentDefinitions struct {
	A, B string
}

func (e *EquivalentDefinitions) Error() string {
	return fmt.Sprintf("equivalent privilege definitions: %s and %s share a leaf set", e.A, e.B)
}

// AggregationNotSupported reports an aggregate that transitively includes a built-in.
type AggregationNotSupported struct {
	Name    string
	BuiltIn string
}

func (e *AggregationNotSupported) Error() string {
	return fmt.Sprintf("aggregation not supported: %s transitively aggregates built-in %s", e.Name, e.BuiltIn)
}

// InvalidName reports a malformed Name value.
type InvalidName struct {
	Reason string
}

func (e *InvalidName) Error() string {
	return fmt.Sprintf("invalid name: %s", e.Reason)
}
