// Package base holds the small, dependency-light types shared by every
// package in the insert-destination family: block identifiers and the
// sentinel errors that the public contract in insertdest promises.
package base

import "github.com/cockroachdb/errors"

var (
	// ErrValidationFailure is raised when a serialized descriptor is
	// malformed: an unknown kind, a missing relation id, or a partitioning
	// attribute absent from the schema. An unresolvable relation is reported
	// as ErrUnknownRelation and a missing partition scheme as
	// ErrPartitionSchemeMissing instead.
	ErrValidationFailure = errors.New("insertdest: descriptor validation failed")

	// ErrOversizedTuple is raised when a tuple does not fit even in a
	// freshly created, empty block.
	ErrOversizedTuple = errors.New("insertdest: tuple too large for an empty block")

	// ErrStorageUnavailable is raised when the storage manager cannot
	// allocate or load a block.
	ErrStorageUnavailable = errors.New("insertdest: storage manager unavailable")

	// ErrBusSendFailure is raised when a pipeline notification could not be
	// delivered after one retry.
	ErrBusSendFailure = errors.New("insertdest: pipeline notification send failed")

	// ErrContractViolation names the misuse of calling GetTouchedBlocks or
	// GetPartiallyFilledBlocks while inserts may still be in flight. No
	// function in this module returns it: those calls do not check for
	// in-flight inserts.
	ErrContractViolation = errors.New("insertdest: contract violation, destination is not quiesced")

	// ErrPartitionSchemeMissing is raised at construction when a
	// partition-aware destination is built for a schema with no
	// PartitionInfo.
	ErrPartitionSchemeMissing = errors.New("insertdest: partition-aware descriptor missing partition scheme")

	// ErrUnknownRelation is raised when a descriptor names a relation the
	// caller cannot resolve.
	ErrUnknownRelation = errors.New("insertdest: unknown relation")
)
