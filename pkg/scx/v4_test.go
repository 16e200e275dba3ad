package scx

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/scx-tools/internal/scxtest"
)

func twoVertices() []scxtest.V4Vertex {
	return []scxtest.V4Vertex{
		{
			Pos:      [3]float32{100, 200, 300},
			Normal:   [3]float32{0, 1, 0},
			Emissive: [4]byte{255, 255, 0, 255},
			Color:    [4]byte{0, 51, 102, 255},
			UV1:      [2]float32{0.25, 0.25},
			UV2:      [2]float32{0.5, 0},
			UV3:      [2]float32{1, 1},
		},
		{
			Pos:    [3]float32{-12.5, 0, 987.25},
			Normal: [3]float32{1, 0, 0},
			UV1:    [2]float32{0.75, 1},
			UV2:    [2]float32{0, 0.5},
			UV3:    [2]float32{0, 0},
		},
	}
}

func TestParseV4_Minimal(t *testing.T) {
	data := scxtest.BuildV4(
		scxtest.V4Entry{Type: 0, Body: scxtest.V4MaterialBody(scxtest.NameEntry("body"))},
		scxtest.V4Entry{Type: 4, Body: scxtest.V4VertexBody(0x201, twoVertices())},
		scxtest.V4Entry{Type: 5, Body: scxtest.V4IndexBody([]uint16{0, 1, 1})},
	)

	scene, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if scene.Version != 4 {
		t.Errorf("expected version 4, got %d", scene.Version)
	}
	if len(scene.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(scene.Meshes))
	}

	mesh := scene.Meshes[0]
	if mesh.Material == nil || mesh.Material.V4 == nil {
		t.Fatal("expected a v4 material")
	}
	if mesh.Material.Name != "body" {
		t.Errorf("expected material name 'body', got %q", mesh.Material.Name)
	}

	vb := mesh.Vertices
	if vb.Count != 2 {
		t.Errorf("expected 2 vertices, got %d", vb.Count)
	}
	if len(vb.Positions) != 2 || len(vb.UV1) != 2 {
		t.Errorf("expected 2 positions and 2 uv1, got %d and %d", len(vb.Positions), len(vb.UV1))
	}
	for name, n := range map[string]int{
		"normals":  len(vb.Normals),
		"uv2":      len(vb.UV2),
		"uv3":      len(vb.UV3),
		"colors":   len(vb.Colors),
		"emissive": len(vb.Emissive),
	} {
		if n != 0 {
			t.Errorf("%s: expected absent, got %d entries", name, n)
		}
	}
	if vb.Format.Has("UV2") {
		t.Error("UV2 bit should be clear")
	}

	if !reflect.DeepEqual(mesh.Triangles, []Triangle{{0, 1, 1}}) {
		t.Errorf("unexpected triangles: %v", mesh.Triangles)
	}

	if vb.Positions[0] != (mgl32.Vec3{1, -3, 2}) {
		t.Errorf("expected converted position (1, -3, 2), got %v", vb.Positions[0])
	}
	if vb.UV1[1] != (mgl32.Vec2{0.75, 0}) {
		t.Errorf("expected flipped uv (0.75, 0), got %v", vb.UV1[1])
	}
}

func TestParseV4_AllAttributes(t *testing.T) {
	mask := VertexPosition | VertexBoneWeight0 | VertexBoneWeight3 | VertexBoneIndRef |
		VertexNormal | VertexEmissive | VertexColor | VertexUV1 | VertexUV2 | VertexUV3 |
		VertexBumpMapNormal
	verts := twoVertices()

	data := scxtest.BuildV4(
		scxtest.V4Entry{Type: 0, Body: scxtest.V4MaterialBody()},
		scxtest.V4Entry{Type: 4, Body: scxtest.V4VertexBody(mask, verts)},
	)

	scene, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	vb := scene.Meshes[0].Vertices

	if vb.Count != 2 {
		t.Fatalf("expected 2 vertices, got %d", vb.Count)
	}
	for name, n := range map[string]int{
		"positions": len(vb.Positions),
		"normals":   len(vb.Normals),
		"emissive":  len(vb.Emissive),
		"colors":    len(vb.Colors),
		"uv1":       len(vb.UV1),
		"uv2":       len(vb.UV2),
		"uv3":       len(vb.UV3),
	} {
		if n != 2 {
			t.Errorf("%s: expected 2 entries, got %d", name, n)
		}
	}

	// The second vertex reads correctly only if bone and bump bytes were skipped.
	for i, in := range verts {
		want := ConvertPosition(in.Pos[0], in.Pos[1], in.Pos[2])
		if vb.Positions[i] != want {
			t.Errorf("vertex %d: position = %v, want %v", i, vb.Positions[i], want)
		}
		if vb.Normals[i] != ConvertNormal(in.Normal[0], in.Normal[1], in.Normal[2]) {
			t.Errorf("vertex %d: normal = %v", i, vb.Normals[i])
		}
		if vb.Emissive[i] != ByteColor(in.Emissive) {
			t.Errorf("vertex %d: emissive = %v", i, vb.Emissive[i])
		}
		if vb.Colors[i] != ByteColor(in.Color) {
			t.Errorf("vertex %d: color = %v", i, vb.Colors[i])
		}
		if vb.UV3[i] != FlipUV(in.UV3[0], in.UV3[1]) {
			t.Errorf("vertex %d: uv3 = %v", i, vb.UV3[i])
		}
	}
	if vb.Colors[0] != (mgl32.Vec4{0, 0.2, 0.4, 1}) {
		t.Errorf("expected color bytes divided by 255, got %v", vb.Colors[0])
	}
}

func TestParseV4_Material(t *testing.T) {
	diffuseMix := scxtest.TextureMap{Index: 4, Channel: 1, TilingFlag: 3, Tiling: [2]float32{2, 2}, Offset: [2]float32{0.5, 0}}
	bump := scxtest.TextureMap{Index: 6}

	data := scxtest.BuildV4(
		scxtest.V4Entry{Type: 0, Body: scxtest.V4MaterialBody(
			scxtest.ColorEntry(0x00000000, [4]byte{255, 0, 0, 255}),
			scxtest.ColorEntry(0x00000002, [4]byte{0, 0, 255, 0}),
			scxtest.FloatEntry(0x01000000, 50),
			scxtest.FloatEntry(0x01000002, 250),
			scxtest.MapEntry(0x06000001, diffuseMix),
			scxtest.MapEntry(0x06000002, bump),
			scxtest.NameEntry("chassis"),
		)},
	)

	scene, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	mat := scene.Meshes[0].Material
	m := mat.V4

	if mat.Name != "chassis" {
		t.Errorf("expected name 'chassis', got %q", mat.Name)
	}
	if m.DiffuseColor == nil || *m.DiffuseColor != (mgl32.Vec4{1, 0, 0, 1}) {
		t.Errorf("unexpected diffuse color %v", m.DiffuseColor)
	}
	if m.EmissiveColor == nil || *m.EmissiveColor != (mgl32.Vec4{0, 0, 1, 0}) {
		t.Errorf("unexpected emissive color %v", m.EmissiveColor)
	}
	if m.SpecularColor != nil || m.ReflectionIntensity != nil || m.DiffuseMap != nil {
		t.Error("absent sub-entries should stay nil")
	}
	if m.SpecularIntensity == nil || *m.SpecularIntensity != 0.5 {
		t.Errorf("expected specular intensity 0.5, got %v", m.SpecularIntensity)
	}
	if m.BumpIntensity == nil || *m.BumpIntensity != 2.5 {
		t.Errorf("expected bump intensity 2.5, got %v", m.BumpIntensity)
	}

	mix := m.DiffuseMixSecond
	if mix == nil {
		t.Fatal("expected DiffuseMixSecond")
	}
	if mix.Index != 4 || mix.Channel != 1 || mix.TilingFlag != 3 {
		t.Errorf("unexpected texture map header %+v", mix)
	}
	if mix.Tiling != (mgl32.Vec2{2, 2}) || mix.Offset != (mgl32.Vec2{0.5, 0}) {
		t.Errorf("unexpected tiling/offset %v %v", mix.Tiling, mix.Offset)
	}
	if m.BumpMap == nil || m.BumpMap.Index != 6 {
		t.Errorf("unexpected bump map %+v", m.BumpMap)
	}

	idx, ok := mat.DiffuseTexture()
	if !ok || idx != 4 {
		t.Errorf("DiffuseTexture() = %d, %v; want fallback to DiffuseMixSecond", idx, ok)
	}
	if c, ok := mat.DiffuseColor(); !ok || c != (mgl32.Vec4{1, 0, 0, 1}) {
		t.Errorf("DiffuseColor() = %v, %v", c, ok)
	}
	if _, ok := mat.SpecularColor(); ok {
		t.Error("SpecularColor() should be unset")
	}
}

func TestParseV4_UnknownMaterialEntry(t *testing.T) {
	data := scxtest.BuildV4(
		scxtest.V4Entry{Type: 0, Body: scxtest.V4MaterialBody(
			scxtest.FloatEntry(0x01000000, 10),
			scxtest.MaterialEntry{Tag: 0x07000000, Data: make([]byte, 4)},
		)},
	)

	_, err := Parse(data)
	if !errors.Is(err, ErrUnknownMaterialEntry) {
		t.Fatalf("expected ErrUnknownMaterialEntry, got %v", err)
	}

	// header 8, count 4, one table entry 8, material preamble 20, first tag 8
	off, ok := ErrorOffset(err)
	if !ok || off != 48 {
		t.Errorf("expected offset 48, got %d (%v)", off, ok)
	}
}

func TestParseV4_PhysicsLatch(t *testing.T) {
	verts := twoVertices()
	tris := []uint16{0, 1, 0}

	tests := []struct {
		name       string
		entries    []scxtest.V4Entry
		wantMeshes int
		wantMat    bool
	}{
		{
			name: "physics mesh first opens meshes",
			entries: []scxtest.V4Entry{
				{Type: 1, Offset: 0},
				{Type: 4, Body: scxtest.V4VertexBody(0x1, verts)},
				{Type: 5, Body: scxtest.V4IndexBody(tris)},
				{Type: 1, Offset: 0},
				{Type: 4, Body: scxtest.V4VertexBody(0x1, verts[:1])},
				{Type: 5, Body: scxtest.V4IndexBody(tris)},
			},
			wantMeshes: 2,
		},
		{
			name: "physics entry after material reuses the open mesh",
			entries: []scxtest.V4Entry{
				{Type: 0, Body: scxtest.V4MaterialBody()},
				{Type: 4, Body: scxtest.V4VertexBody(0x1, verts)},
				{Type: 5, Body: scxtest.V4IndexBody(tris)},
				{Type: 1, Offset: 0},
				{Type: 4, Body: scxtest.V4VertexBody(0x1, verts[:1])},
				{Type: 5, Body: scxtest.V4IndexBody(tris)},
			},
			wantMeshes: 1,
			wantMat:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene, err := Parse(scxtest.BuildV4(tt.entries...))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(scene.Meshes) != tt.wantMeshes {
				t.Fatalf("expected %d meshes, got %d", tt.wantMeshes, len(scene.Meshes))
			}
			for i, m := range scene.Meshes {
				if (m.Material != nil) != tt.wantMat {
					t.Errorf("mesh %d: material present = %v", i, m.Material != nil)
				}
				if len(m.Triangles) != 1 {
					t.Errorf("mesh %d: expected 1 triangle, got %d", i, len(m.Triangles))
				}
			}
			// The last vertex block always lands in the last open mesh.
			last := scene.Meshes[len(scene.Meshes)-1]
			if last.Vertices.Count != 1 {
				t.Errorf("expected last mesh to hold the 1-vertex block, got %d", last.Vertices.Count)
			}
		})
	}
}

func TestParseV4_NoActiveMesh(t *testing.T) {
	tests := []struct {
		name  string
		entry scxtest.V4Entry
	}{
		{"vertices", scxtest.V4Entry{Type: 4, Body: scxtest.V4VertexBody(0x1, twoVertices())}},
		{"indices", scxtest.V4Entry{Type: 5, Body: scxtest.V4IndexBody([]uint16{0, 1, 2})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(scxtest.BuildV4(tt.entry))
			if !errors.Is(err, ErrNoActiveMesh) {
				t.Fatalf("expected ErrNoActiveMesh, got %v", err)
			}
			if off, ok := ErrorOffset(err); !ok || off != 12 {
				t.Errorf("expected offset of the table entry (12), got %d", off)
			}
		})
	}
}

func TestParseV4_IgnoredEntries(t *testing.T) {
	data := scxtest.BuildV4(
		scxtest.V4Entry{Type: 7, Offset: 0xDEADBEEF},
		scxtest.V4Entry{Type: 0, Body: scxtest.V4MaterialBody()},
		scxtest.V4Entry{Type: 2, Offset: 0x10},
		scxtest.V4Entry{Type: 4, Body: scxtest.V4VertexBody(0x1, twoVertices())},
	)

	scene, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(scene.Meshes) != 1 {
		t.Errorf("expected 1 mesh, got %d", len(scene.Meshes))
	}
	want := []EntryRef{{Type: 7, Offset: 0xDEADBEEF}, {Type: 2, Offset: 0x10}}
	if !reflect.DeepEqual(scene.Ignored, want) {
		t.Errorf("Ignored = %v, want %v", scene.Ignored, want)
	}
}

func TestParseV4_PartialTriangle(t *testing.T) {
	data := scxtest.BuildV4(
		scxtest.V4Entry{Type: 0, Body: scxtest.V4MaterialBody()},
		scxtest.V4Entry{Type: 5, Body: scxtest.V4IndexBody([]uint16{2, 1, 0, 5, 4})},
	)

	scene, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !reflect.DeepEqual(scene.Meshes[0].Triangles, []Triangle{{2, 1, 0}}) {
		t.Errorf("unexpected triangles: %v", scene.Meshes[0].Triangles)
	}
}

func TestParseV4_Truncated(t *testing.T) {
	full := scxtest.BuildV4(
		scxtest.V4Entry{Type: 0, Body: scxtest.V4MaterialBody(scxtest.NameEntry("x"))},
		scxtest.V4Entry{Type: 4, Body: scxtest.V4VertexBody(0x1|0x40|0x200, twoVertices())},
		scxtest.V4Entry{Type: 5, Body: scxtest.V4IndexBody([]uint16{0, 1, 0})},
	)

	tests := []struct {
		name string
		data []byte
	}{
		{"entry table", full[:20]},
		{"index block", full[:len(full)-2]},
		{"vertex block", full[:len(full)-24-40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene, err := Parse(tt.data)
			if !errors.Is(err, ErrTruncatedData) {
				t.Fatalf("expected ErrTruncatedData, got %v", err)
			}
			if scene != nil {
				t.Error("expected no partial scene")
			}
		})
	}
}

func TestParseV4_OffsetPastEnd(t *testing.T) {
	data := scxtest.BuildV4(
		scxtest.V4Entry{Type: 0, Body: scxtest.V4MaterialBody()},
		scxtest.V4Entry{Type: 4, Offset: 0x00FFFFFF},
	)

	_, err := Parse(data)
	if !errors.Is(err, ErrTruncatedData) {
		t.Fatalf("expected ErrTruncatedData, got %v", err)
	}
}

func TestParseV4_Deterministic(t *testing.T) {
	data := scxtest.BuildV4(
		scxtest.V4Entry{Type: 0, Body: scxtest.V4MaterialBody(scxtest.ColorEntry(0, [4]byte{1, 2, 3, 4}))},
		scxtest.V4Entry{Type: 4, Body: scxtest.V4VertexBody(0xFFF, twoVertices())},
		scxtest.V4Entry{Type: 5, Body: scxtest.V4IndexBody([]uint16{0, 1, 0})},
	)

	first, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	second, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("decoding the same bytes twice produced different scenes")
	}
}
