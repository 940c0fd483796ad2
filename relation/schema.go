// Package relation holds the read-only, borrowed collaborators that an
// insert destination consults but never mutates: relation schema, block
// layout, partition scheme, tuples, and the value-accessor cursor
// abstraction.
package relation

// AttributeType is the physical type of one attribute in a schema.
type AttributeType int

const (
	AttributeTypeInt AttributeType = iota
	AttributeTypeLong
	AttributeTypeFloat
	AttributeTypeDouble
	AttributeTypeVarChar
	AttributeTypeBool
)

// Attribute is one column of a relation.
type Attribute struct {
	Name string
	Type AttributeType
}

// Layout describes the physical structure stamped onto newly created
// blocks. It is opaque to the insert-destination family beyond being handed
// to the storage manager verbatim.
type Layout struct {
	Name string
	// MaxTuples bounds how many tuples a block created with this layout can
	// hold before it refuses further inserts. Zero means "manager decides".
	MaxTuples int
}

// Schema is the ordered, read-only attribute list of a relation, plus its
// optional partitioning configuration. Schema is never mutated by the
// insert-destination family; it is borrowed for the lifetime of a
// destination.
type Schema struct {
	RelationID    uint32
	Name          string
	Attributes    []Attribute
	DefaultLayout Layout
	PartitionInfo *PartitionInfo
}

// AttributeIndex returns the index of the named attribute, or -1 if absent.
func (s *Schema) AttributeIndex(name string) int {
	for i, a := range s.Attributes {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// LayoutOrDefault returns layout if non-nil, else the schema's default
// layout: if a destination is not given an explicit layout override, the
// relation's default layout is used.
func (s *Schema) LayoutOrDefault(layout *Layout) Layout {
	if layout != nil {
		return *layout
	}
	return s.DefaultLayout
}
