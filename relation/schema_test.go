package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaAttributeIndex(t *testing.T) {
	s := Schema{Attributes: []Attribute{
		{Name: "a", Type: AttributeTypeInt},
		{Name: "b", Type: AttributeTypeVarChar},
	}}
	assert.Equal(t, 0, s.AttributeIndex("a"))
	assert.Equal(t, 1, s.AttributeIndex("b"))
	assert.Equal(t, -1, s.AttributeIndex("missing"))
}

func TestSchemaLayoutOrDefault(t *testing.T) {
	s := Schema{DefaultLayout: Layout{Name: "default", MaxTuples: 100}}

	assert.Equal(t, s.DefaultLayout, s.LayoutOrDefault(nil))

	override := Layout{Name: "wide", MaxTuples: 10}
	assert.Equal(t, override, s.LayoutOrDefault(&override))
}
