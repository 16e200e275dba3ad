package scx

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/scx-tools/pkg/encoding"
)

// v4 container entry types.
const (
	EntryMaterial    uint32 = 0
	EntryPhysicsMesh uint32 = 1
	EntryVertices    uint32 = 4
	EntryIndices     uint32 = 5
)

// v4 material entry tags.
const (
	matDiffuseColor  uint32 = 0x00000000
	matSpecularColor uint32 = 0x00000001
	matEmissiveColor uint32 = 0x00000002

	matSpecularIntensity   uint32 = 0x01000000
	matReflectionIntensity uint32 = 0x01000001
	matBumpIntensity       uint32 = 0x01000002

	matDiffuseMap       uint32 = 0x06000000
	matDiffuseMixSecond uint32 = 0x06000001
	matBumpMap          uint32 = 0x06000002
	matReflectionMap    uint32 = 0x06000003
	matEmissiveMap      uint32 = 0x06000004

	matName uint32 = 0x08000000
)

// decodeV4 walks the (type, offset) entry table. Entries are decoded at their
// offsets and grouped into meshes: a material entry opens a new mesh, and so
// does a physics-mesh entry when the first boundary entry in the file was one.
func decodeV4(c *Cursor) (*Scene, error) {
	scene := &Scene{Version: 4}

	count, err := c.ReadUint32()
	if err != nil {
		return nil, err
	}
	if int64(count)*8 > c.Remaining() {
		return nil, &DecodeError{Offset: c.Position(), Op: "read v4 entry table", Err: ErrTruncatedData}
	}

	physics := false
	var cur *Mesh

	for i := uint32(0); i < count; i++ {
		entryType, err := c.ReadUint32()
		if err != nil {
			return nil, err
		}
		offset, err := c.ReadUint32()
		if err != nil {
			return nil, err
		}
		next := c.Position()

		if cur == nil && entryType == EntryPhysicsMesh {
			physics = true
		}
		if entryType == EntryMaterial || (entryType == EntryPhysicsMesh && physics) {
			scene.Meshes = append(scene.Meshes, Mesh{})
			cur = &scene.Meshes[len(scene.Meshes)-1]
		}

		switch entryType {
		case EntryMaterial, EntryVertices, EntryIndices:
			if cur == nil {
				return nil, &DecodeError{
					Offset: next - 8,
					Op:     fmt.Sprintf("entry %d (type %d)", i, entryType),
					Err:    ErrNoActiveMesh,
				}
			}
			if _, err := c.Seek(int64(offset), io.SeekStart); err != nil {
				return nil, err
			}
			if err := decodeV4Entry(c, entryType, cur); err != nil {
				return nil, err
			}
		case EntryPhysicsMesh:
		default:
			scene.Ignored = append(scene.Ignored, EntryRef{Type: entryType, Offset: offset})
		}

		if _, err := c.Seek(next, io.SeekStart); err != nil {
			return nil, err
		}
	}

	return scene, nil
}

func decodeV4Entry(c *Cursor, entryType uint32, mesh *Mesh) error {
	var err error
	switch entryType {
	case EntryMaterial:
		mesh.Material, err = readV4Material(c)
	case EntryVertices:
		mesh.Vertices, err = readV4Vertices(c)
	case EntryIndices:
		mesh.Triangles, err = readV4Indices(c)
	}
	return err
}

func readV4Material(c *Cursor) (*Material, error) {
	if err := c.Skip(4 * 4); err != nil {
		return nil, err
	}
	count, err := c.ReadUint32()
	if err != nil {
		return nil, err
	}

	m := &MaterialV4{}
	mat := &Material{V4: m}

	for i := uint32(0); i < count; i++ {
		tagOffset := c.Position()
		tag, err := c.ReadUint32()
		if err != nil {
			return nil, err
		}

		switch tag {
		case matDiffuseColor, matSpecularColor, matEmissiveColor:
			col, err := readColor(c)
			if err != nil {
				return nil, err
			}
			switch tag {
			case matDiffuseColor:
				m.DiffuseColor = &col
			case matSpecularColor:
				m.SpecularColor = &col
			default:
				m.EmissiveColor = &col
			}

		case matSpecularIntensity, matReflectionIntensity, matBumpIntensity:
			v, err := c.ReadFloat32()
			if err != nil {
				return nil, err
			}
			v /= 100
			switch tag {
			case matSpecularIntensity:
				m.SpecularIntensity = &v
			case matReflectionIntensity:
				m.ReflectionIntensity = &v
			default:
				m.BumpIntensity = &v
			}

		case matDiffuseMap, matDiffuseMixSecond, matBumpMap, matReflectionMap, matEmissiveMap:
			tm, err := readTextureMap(c)
			if err != nil {
				return nil, err
			}
			switch tag {
			case matDiffuseMap:
				m.DiffuseMap = tm
			case matDiffuseMixSecond:
				m.DiffuseMixSecond = tm
			case matBumpMap:
				m.BumpMap = tm
			case matReflectionMap:
				m.ReflectionMap = tm
			default:
				m.EmissiveMap = tm
			}

		case matName:
			raw, err := c.ReadNullTerminatedFixedString(v3NameSize)
			if err != nil {
				return nil, err
			}
			mat.Name = encoding.DecodeName([]byte(raw))

		default:
			return nil, &DecodeError{
				Offset: tagOffset,
				Op:     "read v4 material entry",
				Err:    fmt.Errorf("%w: 0x%08X", ErrUnknownMaterialEntry, tag),
			}
		}
	}

	return mat, nil
}

func readTextureMap(c *Cursor) (*TextureMap, error) {
	tm := &TextureMap{}
	var err error
	if tm.Index, err = c.ReadUint32(); err != nil {
		return nil, err
	}
	if tm.Channel, err = c.ReadUint32(); err != nil {
		return nil, err
	}
	if tm.TilingFlag, err = c.ReadUint32(); err != nil {
		return nil, err
	}
	var v [4]float32
	if err = c.readFloats(v[:]); err != nil {
		return nil, err
	}
	tm.Tiling = mgl32.Vec2{v[0], v[1]}
	tm.Offset = mgl32.Vec2{v[2], v[3]}
	return tm, nil
}

// v4VertexStride returns the byte size of one vertex for the given mask.
func v4VertexStride(flags FlagSet) int64 {
	sizes := []struct {
		mask uint32
		size int64
	}{
		{VertexPosition, 12},
		{VertexBoneWeight0, 4},
		{VertexBoneWeight1, 4},
		{VertexBoneWeight2, 4},
		{VertexBoneWeight3, 4},
		{VertexBoneIndRef, 4},
		{VertexNormal, 12},
		{VertexEmissive, 4},
		{VertexColor, 4},
		{VertexUV1, 8},
		{VertexUV2, 8},
		{VertexUV3, 8},
		{VertexBumpMapNormal, 12},
	}
	var stride int64
	for _, s := range sizes {
		if flags.HasMask(s.mask) {
			stride += s.size
		}
	}
	return stride
}

// readV4Vertices reads only the attributes enabled in the block's type mask.
// Bone weights, bone references and bump-map normals are skipped.
func readV4Vertices(c *Cursor) (VertexBlock, error) {
	if err := c.Skip(4 * 2); err != nil {
		return VertexBlock{}, err
	}
	count, err := c.ReadUint32()
	if err != nil {
		return VertexBlock{}, err
	}
	mask, err := c.ReadUint32()
	if err != nil {
		return VertexBlock{}, err
	}
	flags := NewVertexTypeFlags(mask)

	if int64(count)*v4VertexStride(flags) > c.Remaining() {
		return VertexBlock{}, &DecodeError{Offset: c.Position(), Op: "read v4 vertices", Err: ErrTruncatedData}
	}

	n := int(count)
	vb := VertexBlock{Count: n, Format: flags}
	if flags.HasMask(VertexPosition) {
		vb.Positions = make([]mgl32.Vec3, 0, n)
	}
	if flags.HasMask(VertexNormal) {
		vb.Normals = make([]mgl32.Vec3, 0, n)
	}
	if flags.HasMask(VertexEmissive) {
		vb.Emissive = make([]mgl32.Vec4, 0, n)
	}
	if flags.HasMask(VertexColor) {
		vb.Colors = make([]mgl32.Vec4, 0, n)
	}
	if flags.HasMask(VertexUV1) {
		vb.UV1 = make([]mgl32.Vec2, 0, n)
	}
	if flags.HasMask(VertexUV2) {
		vb.UV2 = make([]mgl32.Vec2, 0, n)
	}
	if flags.HasMask(VertexUV3) {
		vb.UV3 = make([]mgl32.Vec2, 0, n)
	}

	skip := func(mask uint32, n int) error {
		if flags.HasMask(mask) {
			return c.Skip(n)
		}
		return nil
	}

	for i := 0; i < n; i++ {
		if flags.HasMask(VertexPosition) {
			p, err := readPosition(c)
			if err != nil {
				return VertexBlock{}, err
			}
			vb.Positions = append(vb.Positions, p)
		}
		for _, bone := range []uint32{VertexBoneWeight0, VertexBoneWeight1, VertexBoneWeight2, VertexBoneWeight3, VertexBoneIndRef} {
			if err := skip(bone, 4); err != nil {
				return VertexBlock{}, err
			}
		}
		if flags.HasMask(VertexNormal) {
			nrm, err := readNormal(c)
			if err != nil {
				return VertexBlock{}, err
			}
			vb.Normals = append(vb.Normals, nrm)
		}
		if flags.HasMask(VertexEmissive) {
			col, err := readColor(c)
			if err != nil {
				return VertexBlock{}, err
			}
			vb.Emissive = append(vb.Emissive, col)
		}
		if flags.HasMask(VertexColor) {
			col, err := readColor(c)
			if err != nil {
				return VertexBlock{}, err
			}
			vb.Colors = append(vb.Colors, col)
		}
		for _, uv := range []struct {
			mask uint32
			dst  *[]mgl32.Vec2
		}{
			{VertexUV1, &vb.UV1},
			{VertexUV2, &vb.UV2},
			{VertexUV3, &vb.UV3},
		} {
			if !flags.HasMask(uv.mask) {
				continue
			}
			t, err := readUV(c)
			if err != nil {
				return VertexBlock{}, err
			}
			*uv.dst = append(*uv.dst, t)
		}
		if err := skip(VertexBumpMapNormal, 4*3); err != nil {
			return VertexBlock{}, err
		}
	}

	return vb, nil
}

// readV4Indices reads a flat 16-bit index count and groups it into
// triangles. A trailing partial triangle is ignored.
func readV4Indices(c *Cursor) ([]Triangle, error) {
	if err := c.Skip(4 * 2); err != nil {
		return nil, err
	}
	count, err := c.ReadUint32()
	if err != nil {
		return nil, err
	}

	triCount := int64(count / 3)
	if triCount*6 > c.Remaining() {
		return nil, &DecodeError{Offset: c.Position(), Op: "read v4 indices", Err: ErrTruncatedData}
	}

	tris := make([]Triangle, triCount)
	for i := range tris {
		for j := 0; j < 3; j++ {
			v, err := c.ReadUint16()
			if err != nil {
				return nil, err
			}
			tris[i][j] = uint32(v)
		}
	}
	return tris, nil
}
