// Package scxtest builds synthetic SCX containers for tests.
package scxtest

import (
	"bytes"
	"encoding/binary"
)

// Magic is the SCX container signature.
const Magic = "INVO"

func put(buf *bytes.Buffer, v any) {
	_ = binary.Write(buf, binary.LittleEndian, v)
}

func putName(buf *bytes.Buffer, name string) {
	b := make([]byte, 32)
	copy(b, name)
	buf.Write(b)
}

// Header returns magic and version.
func Header(version uint32) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(Magic)
	put(buf, version)
	return buf.Bytes()
}

// V3Material describes a v3 material record. Size selects which optional
// blocks are written: > 56 adds the extended block, > 104 adds the name.
type V3Material struct {
	Size       uint32
	Diffuse    [4]float32
	Specular   [3]float32
	Intensity  float32
	Gloss      float32
	Flags      uint32
	Maps       [5]uint16 // diffuse, bump, specular, reflection, diffuse layer 2
	IllumMap   uint16
	VertexSize uint32
	Channels   [4]uint16
	IllumColor [3]float32
	Name       string
}

// V3Vertex is one v3 vertex in stored (file) coordinates.
type V3Vertex struct {
	Pos    [3]float32
	Normal [3]float32
	UV1    [2]float32
	UV2    [2]float32
	Color  [4]byte
	UV3    [2]float32 // Written only for extended materials
}

// V3Mesh is one (material, vertices, indices) record.
type V3Mesh struct {
	Material  V3Material
	Vertices  []V3Vertex
	Triangles [][3]uint32
}

// WriteV3Material appends a material record.
func WriteV3Material(buf *bytes.Buffer, m V3Material) {
	put(buf, m.Size)
	put(buf, m.Diffuse)
	put(buf, m.Specular)
	put(buf, m.Intensity)
	put(buf, m.Gloss)
	put(buf, m.Flags)
	put(buf, m.Maps)
	buf.Write(make([]byte, 2))

	if m.Size > 56 {
		put(buf, m.IllumMap)
		buf.Write(make([]byte, 2))
		put(buf, m.VertexSize)
		buf.Write(make([]byte, 4+2))
		put(buf, m.Channels)
		buf.Write(make([]byte, 2+4+4+4))
		put(buf, m.IllumColor)
	}
	if m.Size > 104 {
		putName(buf, m.Name)
	}
}

// BuildV3 returns a complete v3 container without an end marker.
func BuildV3(meshes ...V3Mesh) []byte {
	buf := bytes.NewBuffer(Header(3))
	for _, mesh := range meshes {
		WriteV3Material(buf, mesh.Material)

		put(buf, uint32(len(mesh.Vertices)))
		for _, v := range mesh.Vertices {
			put(buf, v.Pos)
			put(buf, v.Normal)
			put(buf, v.UV1)
			put(buf, v.UV2)
			put(buf, v.Color)
			if mesh.Material.Size > 56 {
				buf.Write(bytes.Repeat([]byte{0xAB}, 8))
				put(buf, v.UV3)
				buf.Write(bytes.Repeat([]byte{0xCD}, 4))
			}
		}

		put(buf, uint32(len(mesh.Triangles)))
		for _, tri := range mesh.Triangles {
			put(buf, tri)
		}
	}
	return buf.Bytes()
}

// V4Entry is one entry of the v4 offset table. Body is placed after the
// table; when Body is nil, Offset is written as given.
type V4Entry struct {
	Type   uint32
	Body   []byte
	Offset uint32
}

// BuildV4 lays out the entry table followed by the entry bodies.
func BuildV4(entries ...V4Entry) []byte {
	buf := bytes.NewBuffer(Header(4))
	put(buf, uint32(len(entries)))

	offset := uint32(buf.Len() + 8*len(entries))
	for _, e := range entries {
		put(buf, e.Type)
		if e.Body == nil {
			put(buf, e.Offset)
			continue
		}
		put(buf, offset)
		offset += uint32(len(e.Body))
	}
	for _, e := range entries {
		buf.Write(e.Body)
	}
	return buf.Bytes()
}

// MaterialEntry is one tagged v4 material sub-entry.
type MaterialEntry struct {
	Tag  uint32
	Data []byte
}

// V4MaterialBody encodes a v4 material entry.
func V4MaterialBody(entries ...MaterialEntry) []byte {
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, 16))
	put(buf, uint32(len(entries)))
	for _, e := range entries {
		put(buf, e.Tag)
		buf.Write(e.Data)
	}
	return buf.Bytes()
}

// ColorEntry encodes an RGBA byte color sub-entry.
func ColorEntry(tag uint32, rgba [4]byte) MaterialEntry {
	return MaterialEntry{Tag: tag, Data: rgba[:]}
}

// FloatEntry encodes a scalar sub-entry.
func FloatEntry(tag uint32, v float32) MaterialEntry {
	buf := new(bytes.Buffer)
	put(buf, v)
	return MaterialEntry{Tag: tag, Data: buf.Bytes()}
}

// TextureMap is a v4 texture descriptor.
type TextureMap struct {
	Index      uint32
	Channel    uint32
	TilingFlag uint32
	Tiling     [2]float32
	Offset     [2]float32
}

// MapEntry encodes a texture map sub-entry.
func MapEntry(tag uint32, m TextureMap) MaterialEntry {
	buf := new(bytes.Buffer)
	put(buf, m)
	return MaterialEntry{Tag: tag, Data: buf.Bytes()}
}

// NameEntry encodes a 32-byte name sub-entry.
func NameEntry(name string) MaterialEntry {
	buf := new(bytes.Buffer)
	putName(buf, name)
	return MaterialEntry{Tag: 0x08000000, Data: buf.Bytes()}
}

// V4Vertex is one v4 vertex in stored coordinates. Only fields enabled by
// the block mask are written; bone and bump fields are filled with junk.
type V4Vertex struct {
	Pos      [3]float32
	Normal   [3]float32
	Emissive [4]byte
	Color    [4]byte
	UV1      [2]float32
	UV2      [2]float32
	UV3      [2]float32
}

// V4VertexBody encodes a v4 vertex entry for the given type mask.
func V4VertexBody(mask uint32, verts []V4Vertex) []byte {
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, 8))
	put(buf, uint32(len(verts)))
	put(buf, mask)

	junk := func(bit uint32, n int) {
		if mask&bit != 0 {
			buf.Write(bytes.Repeat([]byte{0xEE}, n))
		}
	}

	for _, v := range verts {
		if mask&0x1 != 0 {
			put(buf, v.Pos)
		}
		junk(0x2, 4)
		junk(0x4, 4)
		junk(0x8, 4)
		junk(0x10, 4)
		junk(0x20, 4)
		if mask&0x40 != 0 {
			put(buf, v.Normal)
		}
		if mask&0x80 != 0 {
			put(buf, v.Emissive)
		}
		if mask&0x100 != 0 {
			put(buf, v.Color)
		}
		if mask&0x200 != 0 {
			put(buf, v.UV1)
		}
		if mask&0x400 != 0 {
			put(buf, v.UV2)
		}
		if mask&0x800 != 0 {
			put(buf, v.UV3)
		}
		junk(0x40000, 12)
	}
	return buf.Bytes()
}

// V4IndexBody encodes a v4 index entry with a flat index list.
func V4IndexBody(indices []uint16) []byte {
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, 8))
	put(buf, uint32(len(indices)))
	put(buf, indices)
	return buf.Bytes()
}
