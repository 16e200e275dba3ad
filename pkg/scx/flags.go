package scx

import "strings"

// Flag names one bit (or bit group) of a flag word.
type Flag struct {
	Name string
	Mask uint32
}

// FlagSet is an immutable view of a flag word through a fixed label table.
type FlagSet struct {
	value uint32
	table []Flag
}

// NewFlagSet decodes value against table. The table order is kept for Names
// and String.
func NewFlagSet(value uint32, table []Flag) FlagSet {
	return FlagSet{value: value, table: table}
}

// Value returns the raw flag word.
func (f FlagSet) Value() uint32 {
	return f.value
}

// Has reports whether the labelled flag is set. Unknown labels are never set.
func (f FlagSet) Has(name string) bool {
	for _, fl := range f.table {
		if fl.Name == name {
			return f.value&fl.Mask != 0
		}
	}
	return false
}

// HasMask reports whether any bit of mask is set.
func (f FlagSet) HasMask(mask uint32) bool {
	return f.value&mask != 0
}

// Names returns the labels of all set flags in table order.
func (f FlagSet) Names() []string {
	var names []string
	for _, fl := range f.table {
		if f.value&fl.Mask != 0 {
			names = append(names, fl.Name)
		}
	}
	return names
}

// String renders the set flags as "< A | B >".
func (f FlagSet) String() string {
	return "< " + strings.Join(f.Names(), " | ") + " >"
}

// Material flag bits (v3).
const (
	MaterialAlphaOpacity           uint32 = 0x1
	MaterialVertexColorBlend       uint32 = 0x2
	MaterialLayer2BlendByAlpha     uint32 = 0x40
	MaterialDiffuseBlend           uint32 = 0x100
	MaterialLayer2VertexColorBlend uint32 = 0x1000
)

// MaterialFlagTable labels the v3 material flag word.
var MaterialFlagTable = []Flag{
	{"AlphaOpacity", MaterialAlphaOpacity},
	{"VertexColorBlend", MaterialVertexColorBlend},
	{"Layer2BlendByAlpha", MaterialLayer2BlendByAlpha},
	{"DiffuseBlend", MaterialDiffuseBlend},
	{"Layer2VertexColorBlend", MaterialLayer2VertexColorBlend},
}

// Vertex type bits (v4). The order of VertexTypeFlagTable is also the order
// in which per-vertex fields appear in the stream.
const (
	VertexPosition      uint32 = 0x1
	VertexBoneWeight0   uint32 = 0x2
	VertexBoneWeight1   uint32 = 0x4
	VertexBoneWeight2   uint32 = 0x8
	VertexBoneWeight3   uint32 = 0x10
	VertexBoneIndRef    uint32 = 0x20
	VertexNormal        uint32 = 0x40
	VertexEmissive      uint32 = 0x80
	VertexColor         uint32 = 0x100
	VertexUV1           uint32 = 0x200
	VertexUV2           uint32 = 0x400
	VertexUV3           uint32 = 0x800
	VertexBumpMapNormal uint32 = 0x40000
)

// VertexTypeFlagTable labels the v4 vertex type mask.
var VertexTypeFlagTable = []Flag{
	{"Position", VertexPosition},
	{"BoneWeight0", VertexBoneWeight0},
	{"BoneWeight1", VertexBoneWeight1},
	{"BoneWeight2", VertexBoneWeight2},
	{"BoneWeight3", VertexBoneWeight3},
	{"BoneIndRef", VertexBoneIndRef},
	{"Normal", VertexNormal},
	{"VertexEmissive", VertexEmissive},
	{"VertexColor", VertexColor},
	{"UV1", VertexUV1},
	{"UV2", VertexUV2},
	{"UV3", VertexUV3},
	{"BumpMapNormal", VertexBumpMapNormal},
}

// NewMaterialFlags decodes a v3 material flag word.
func NewMaterialFlags(value uint32) FlagSet {
	return NewFlagSet(value, MaterialFlagTable)
}

// NewVertexTypeFlags decodes a v4 vertex type mask.
func NewVertexTypeFlags(value uint32) FlagSet {
	return NewFlagSet(value, VertexTypeFlagTable)
}
