package scx

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/scx-tools/pkg/encoding"
)

// v3 material record sizes that gate optional fields.
const (
	v3MaterialBaseSize     = 56
	v3MaterialExtendedSize = 104
	v3NameSize             = 32
)

// decodeV3 reads (material, vertices, indices) triples until the end marker
// or the end of the buffer.
func decodeV3(c *Cursor) (*Scene, error) {
	scene := &Scene{Version: 3}

	for c.Remaining() > 4 {
		mat, err := readV3Material(c)
		if err != nil {
			return nil, err
		}
		if mat == nil {
			break
		}

		vb, err := readV3Vertices(c, mat.V3.Size)
		if err != nil {
			return nil, err
		}

		tris, err := readV3Indices(c)
		if err != nil {
			return nil, err
		}

		scene.Meshes = append(scene.Meshes, Mesh{
			Material:  mat,
			Vertices:  vb,
			Triangles: tris,
		})
	}

	return scene, nil
}

// readV3Material returns nil without error on the size-0 end marker.
func readV3Material(c *Cursor) (*Material, error) {
	size, err := c.ReadUint32()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}

	m := &MaterialV3{Size: size}

	var floats [9]float32
	if err := c.readFloats(floats[:]); err != nil {
		return nil, err
	}
	m.DiffuseColor = mgl32.Vec4{floats[0], floats[1], floats[2], floats[3]}
	m.SpecularColor = mgl32.Vec3{floats[4], floats[5], floats[6]}
	m.SpecularIntensity = floats[7]
	m.Glossiness = floats[8]

	flags, err := c.ReadUint32()
	if err != nil {
		return nil, err
	}
	m.Flags = NewMaterialFlags(flags)

	maps := []*uint16{&m.DiffuseMap, &m.BumpMap, &m.SpecularMap, &m.ReflectionMap, &m.DiffuseLayer2Map}
	for _, dst := range maps {
		if *dst, err = c.ReadUint16(); err != nil {
			return nil, err
		}
	}
	if err := c.Skip(2); err != nil {
		return nil, err
	}

	if size > v3MaterialBaseSize {
		ext, err := readV3MaterialExt(c)
		if err != nil {
			return nil, err
		}
		m.Extended = ext
	}

	mat := &Material{V3: m}
	if size > v3MaterialExtendedSize {
		raw, err := c.ReadNullTerminatedFixedString(v3NameSize)
		if err != nil {
			return nil, err
		}
		mat.Name = encoding.DecodeName([]byte(raw))
		m.HasName = true
	}

	return mat, nil
}

func readV3MaterialExt(c *Cursor) (*MaterialV3Ext, error) {
	ext := &MaterialV3Ext{}
	var err error

	if ext.IlluminationMap, err = c.ReadUint16(); err != nil {
		return nil, err
	}
	if err = c.Skip(2); err != nil {
		return nil, err
	}
	if ext.VertexSize, err = c.ReadUint32(); err != nil {
		return nil, err
	}
	if err = c.Skip(4 + 2); err != nil {
		return nil, err
	}

	channels := []*uint16{&ext.DiffuseMix1Channel, &ext.DiffuseMix2Channel, &ext.BumpChannel, &ext.SpecularChannel}
	for _, dst := range channels {
		if *dst, err = c.ReadUint16(); err != nil {
			return nil, err
		}
	}
	if err = c.Skip(2 + 4 + 4 + 4); err != nil {
		return nil, err
	}

	var color [3]float32
	if err = c.readFloats(color[:]); err != nil {
		return nil, err
	}
	ext.IlluminationColor = mgl32.Vec3{color[0], color[1], color[2]}

	return ext, nil
}

// readV3Vertices reads a v3 vertex block. Every vertex carries position,
// normal, two UV sets and a color; long materials add a third UV set
// surrounded by unused fields.
func readV3Vertices(c *Cursor, materialSize uint32) (VertexBlock, error) {
	count, err := c.ReadUint32()
	if err != nil {
		return VertexBlock{}, err
	}

	extended := materialSize > v3MaterialBaseSize
	format := VertexPosition | VertexNormal | VertexColor | VertexUV1 | VertexUV2
	stride := int64(44)
	if extended {
		format |= VertexUV3
		stride += 20
	}
	if int64(count)*stride > c.Remaining() {
		return VertexBlock{}, &DecodeError{Offset: c.Position(), Op: "read v3 vertices", Err: ErrTruncatedData}
	}

	n := int(count)
	vb := VertexBlock{
		Count:     n,
		Format:    NewVertexTypeFlags(format),
		Positions: make([]mgl32.Vec3, n),
		Normals:   make([]mgl32.Vec3, n),
		UV1:       make([]mgl32.Vec2, n),
		UV2:       make([]mgl32.Vec2, n),
		Colors:    make([]mgl32.Vec4, n),
	}
	if extended {
		vb.UV3 = make([]mgl32.Vec2, n)
	}

	for i := 0; i < n; i++ {
		if vb.Positions[i], err = readPosition(c); err != nil {
			return VertexBlock{}, err
		}
		if vb.Normals[i], err = readNormal(c); err != nil {
			return VertexBlock{}, err
		}
		if vb.UV1[i], err = readUV(c); err != nil {
			return VertexBlock{}, err
		}
		if vb.UV2[i], err = readUV(c); err != nil {
			return VertexBlock{}, err
		}
		if vb.Colors[i], err = readColor(c); err != nil {
			return VertexBlock{}, err
		}

		if extended {
			if err = c.Skip(4 + 4); err != nil {
				return VertexBlock{}, err
			}
			if vb.UV3[i], err = readUV(c); err != nil {
				return VertexBlock{}, err
			}
			if err = c.Skip(4); err != nil {
				return VertexBlock{}, err
			}
		}
	}

	return vb, nil
}

// readV3Indices reads a triangle count followed by 32-bit index triples.
func readV3Indices(c *Cursor) ([]Triangle, error) {
	count, err := c.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int64(count)*12 > c.Remaining() {
		return nil, &DecodeError{Offset: c.Position(), Op: "read v3 indices", Err: ErrTruncatedData}
	}

	tris := make([]Triangle, count)
	for i := range tris {
		for j := 0; j < 3; j++ {
			if tris[i][j], err = c.ReadUint32(); err != nil {
				return nil, err
			}
		}
	}
	return tris, nil
}
