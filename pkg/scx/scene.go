package scx

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// NoTexture marks an unused v3 texture slot.
const NoTexture uint16 = 0xFFFF

// Scene is a decoded SCX container.
type Scene struct {
	Version uint32     // Container version (3 or 4)
	Meshes  []Mesh     // Meshes in file order
	Ignored []EntryRef // v4 entries with unrecognized types
}

// EntryRef identifies a v4 container entry.
type EntryRef struct {
	Type   uint32
	Offset uint32
}

// Mesh groups a material with its vertices and triangles. Triangle indices
// refer to Vertices.
type Mesh struct {
	Material  *Material
	Vertices  VertexBlock
	Triangles []Triangle
}

// Triangle holds three vertex indices.
type Triangle [3]uint32

// VertexBlock stores per-vertex attributes as parallel arrays. A present
// attribute has exactly Count entries; an absent one is empty.
type VertexBlock struct {
	Count     int
	Format    FlagSet // Vertex type flags (synthesized for v3)
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UV1       []mgl32.Vec2
	UV2       []mgl32.Vec2
	UV3       []mgl32.Vec2
	Colors    []mgl32.Vec4
	Emissive  []mgl32.Vec4
}

// Material is a decoded material record. Exactly one of V3 and V4 is set.
type Material struct {
	Name string
	V3   *MaterialV3
	V4   *MaterialV4
}

// MaterialV3 is the fixed-layout v3 material.
type MaterialV3 struct {
	Size              uint32
	DiffuseColor      mgl32.Vec4
	SpecularColor     mgl32.Vec3
	SpecularIntensity float32
	Glossiness        float32
	Flags             FlagSet

	DiffuseMap       uint16
	BumpMap          uint16
	SpecularMap      uint16
	ReflectionMap    uint16
	DiffuseLayer2Map uint16

	Extended *MaterialV3Ext // Present when Size > 56
	HasName  bool           // Size > 104
}

// MaterialV3Ext holds the fields of long v3 material records.
type MaterialV3Ext struct {
	IlluminationMap    uint16
	VertexSize         uint32
	DiffuseMix1Channel uint16
	DiffuseMix2Channel uint16
	BumpChannel        uint16
	SpecularChannel    uint16
	IlluminationColor  mgl32.Vec3
}

// MaterialV4 is the tagged-entry v4 material. Nil fields were not present.
type MaterialV4 struct {
	DiffuseColor  *mgl32.Vec4
	SpecularColor *mgl32.Vec4
	EmissiveColor *mgl32.Vec4

	SpecularIntensity   *float32
	ReflectionIntensity *float32
	BumpIntensity       *float32

	DiffuseMap       *TextureMap
	DiffuseMixSecond *TextureMap
	BumpMap          *TextureMap
	ReflectionMap    *TextureMap
	EmissiveMap      *TextureMap
}

// TextureMap describes one v4 texture slot.
type TextureMap struct {
	Index      uint32
	Channel    uint32
	TilingFlag uint32
	Tiling     mgl32.Vec2
	Offset     mgl32.Vec2
}

// DiffuseColor returns the RGBA diffuse color if the material defines one.
func (m *Material) DiffuseColor() (mgl32.Vec4, bool) {
	switch {
	case m.V3 != nil:
		return m.V3.DiffuseColor, true
	case m.V4 != nil && m.V4.DiffuseColor != nil:
		return *m.V4.DiffuseColor, true
	}
	return mgl32.Vec4{}, false
}

// SpecularColor returns the RGB specular color if the material defines one.
func (m *Material) SpecularColor() (mgl32.Vec3, bool) {
	switch {
	case m.V3 != nil:
		return m.V3.SpecularColor, true
	case m.V4 != nil && m.V4.SpecularColor != nil:
		return m.V4.SpecularColor.Vec3(), true
	}
	return mgl32.Vec3{}, false
}

// SpecularIntensity returns the specular intensity if the material defines one.
func (m *Material) SpecularIntensity() (float32, bool) {
	switch {
	case m.V3 != nil:
		return m.V3.SpecularIntensity, true
	case m.V4 != nil && m.V4.SpecularIntensity != nil:
		return *m.V4.SpecularIntensity, true
	}
	return 0, false
}

// DiffuseTexture returns the texture index used for the base color.
// v4 materials without a diffuse map fall back to the second diffuse layer.
func (m *Material) DiffuseTexture() (int, bool) {
	switch {
	case m.V3 != nil:
		if m.V3.DiffuseMap == NoTexture {
			return 0, false
		}
		return int(m.V3.DiffuseMap), true
	case m.V4 != nil && m.V4.DiffuseMap != nil:
		return int(m.V4.DiffuseMap.Index), true
	case m.V4 != nil && m.V4.DiffuseMixSecond != nil:
		return int(m.V4.DiffuseMixSecond.Index), true
	}
	return 0, false
}

// VertexCount returns the total number of vertices across all meshes.
func (s *Scene) VertexCount() int {
	total := 0
	for _, m := range s.Meshes {
		total += m.Vertices.Count
	}
	return total
}

// TriangleCount returns the total number of triangles across all meshes.
func (s *Scene) TriangleCount() int {
	total := 0
	for _, m := range s.Meshes {
		total += len(m.Triangles)
	}
	return total
}

// Name returns the mesh name: the material name, else fallback.
func (m *Mesh) Name(fallback string) string {
	if m.Material != nil && m.Material.Name != "" {
		return m.Material.Name
	}
	return fallback
}

// String summarizes the mesh for diagnostics.
func (m *Mesh) String() string {
	return fmt.Sprintf("%q: %d vertices %s, %d triangles",
		m.Name(""), m.Vertices.Count, m.Vertices.Format, len(m.Triangles))
}

// ConvertPosition maps a stored position to scene space: centimeters to
// meters, then (x, y, z) -> (x, -z, y).
func ConvertPosition(x, y, z float32) mgl32.Vec3 {
	return mgl32.Vec3{x / 100, -z / 100, y / 100}
}

// ConvertNormal applies the position axis swap without scaling.
func ConvertNormal(x, y, z float32) mgl32.Vec3 {
	return mgl32.Vec3{x, -z, y}
}

// FlipUV flips the V coordinate.
func FlipUV(u, v float32) mgl32.Vec2 {
	return mgl32.Vec2{u, 1 - v}
}

// ByteColor normalizes four color bytes to [0, 1].
func ByteColor(c [4]byte) mgl32.Vec4 {
	return mgl32.Vec4{
		float32(c[0]) / 255,
		float32(c[1]) / 255,
		float32(c[2]) / 255,
		float32(c[3]) / 255,
	}
}

func readPosition(c *Cursor) (mgl32.Vec3, error) {
	var v [3]float32
	if err := c.readFloats(v[:]); err != nil {
		return mgl32.Vec3{}, err
	}
	return ConvertPosition(v[0], v[1], v[2]), nil
}

func readNormal(c *Cursor) (mgl32.Vec3, error) {
	var v [3]float32
	if err := c.readFloats(v[:]); err != nil {
		return mgl32.Vec3{}, err
	}
	return ConvertNormal(v[0], v[1], v[2]), nil
}

func readUV(c *Cursor) (mgl32.Vec2, error) {
	var v [2]float32
	if err := c.readFloats(v[:]); err != nil {
		return mgl32.Vec2{}, err
	}
	return FlipUV(v[0], v[1]), nil
}

func readColor(c *Cursor) (mgl32.Vec4, error) {
	b, err := c.readBytes4()
	if err != nil {
		return mgl32.Vec4{}, err
	}
	return ByteColor(b), nil
}
