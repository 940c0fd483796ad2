package insertdest

import (
	"github.com/cockroachdb/errors"

	"insertdest/bus"
	"insertdest/internal/base"
	"insertdest/relation"
	"insertdest/storagemgr"
)

// Kind discriminates which policy a serialized descriptor selects.
type Kind int

const (
	KindAlwaysCreate Kind = iota
	KindBlockPool
	KindPartitionAware
)

// Descriptor is the discriminated wire record an optimizer emits to
// describe an insert destination: kind, target relation,
// optional layout override, the producing operator's DAG index, and the
// foreman's bus client id. The descriptor carries no partition scheme;
// ReconstructFromProto takes it from the resolved schema's PartitionInfo,
// which must be non-nil for KindPartitionAware.
type Descriptor struct {
	Kind              Kind
	RelationID        uint32
	Layout            *relation.Layout
	RelationalOpIndex uint32
	ForemanClientID   bus.ClientID
}

// Validate checks a descriptor is fully-formed. It does not consult
// schema, only descriptor well-formedness; ReconstructFromProto performs
// the schema-dependent checks (e.g. the partitioning attribute actually
// existing).
func (d Descriptor) Validate() error {
	switch d.Kind {
	case KindAlwaysCreate, KindBlockPool, KindPartitionAware:
	default:
		return errors.Wrapf(base.ErrValidationFailure, "unknown destination kind %d", d.Kind)
	}
	if d.RelationID == 0 {
		return errors.Wrapf(base.ErrValidationFailure, "descriptor has no relation id")
	}
	return nil
}

// ReconstructFromProto builds a Destination from a descriptor the query
// optimizer serialized. It performs Validate() first, then the
// schema-dependent checks Validate cannot make on its own: that schema's
// relation id matches, and — for KindPartitionAware — that a partition
// scheme is present and its partitioning attribute actually exists in
// schema.
//
// Validate can run independently of resolving a relation, before the
// relation and storage manager are even available.
func ReconstructFromProto(d Descriptor, schema *relation.Schema, mgr storagemgr.StorageManager, transport bus.MessageBus, clients *bus.ClientMap) (*Destination, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if schema == nil || schema.RelationID != d.RelationID {
		return nil, errors.Wrapf(base.ErrUnknownRelation, "relation id %d", d.RelationID)
	}

	notifier := bus.NewNotifier(transport, clients, d.ForemanClientID, d.RelationID, d.RelationalOpIndex)

	switch d.Kind {
	case KindAlwaysCreate:
		return NewAlwaysCreate(schema, d.Layout, mgr, notifier, d.RelationalOpIndex), nil
	case KindBlockPool:
		return NewBlockPool(schema, d.Layout, mgr, notifier, d.RelationalOpIndex), nil
	case KindPartitionAware:
		if schema.PartitionInfo == nil {
			return nil, base.ErrPartitionSchemeMissing
		}
		return NewPartitionAware(schema, d.Layout, mgr, notifier, d.RelationalOpIndex)
	default:
		return nil, errors.Wrapf(base.ErrValidationFailure, "unknown destination kind %d", d.Kind)
	}
}
