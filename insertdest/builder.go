package insertdest

import (
	"insertdest/internal/base"
	"insertdest/storagemgr"
)

// InternalBuilder is the narrow, privileged interface granted to the
// sort/merge-run collaborator. It models a friend-class-style access grant
// as an explicit secondary interface instead, so the grant is visible at
// every call site rather than implicit in a class declaration.
type InternalBuilder interface {
	// RawTouchedBlocks returns the touched-block log directly, without the
	// "destination must be quiesced" caveat GetTouchedBlocks documents for
	// ordinary callers — the sort collaborator runs only after the
	// destination-owning operator has already finished producing tuples.
	RawTouchedBlocks() []base.BlockID
	// DrainPool transfers ownership of every pooled block the same way
	// GetPartiallyFilledBlocks does, exposed here so the sort collaborator
	// doesn't need a second, differently-scoped export.
	DrainPool() []*storagemgr.BlockHandle
}

type internalBuilder struct {
	d *Destination
}

func (b internalBuilder) RawTouchedBlocks() []base.BlockID {
	return b.d.policy.touched()
}

func (b internalBuilder) DrainPool() []*storagemgr.BlockHandle {
	return b.d.policy.partiallyFilled()
}

// ForSortCollaborator returns the InternalBuilder for d, for use only by
// code implementing a sort/merge-run collaborator.
func ForSortCollaborator(d *Destination) InternalBuilder {
	return d.forSortCollaborator()
}
