package builder

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/scx-tools/pkg/scx"
	"github.com/Faultbox/scx-tools/pkg/texlist"
)

func triangleBlock(withNormals bool) scx.VertexBlock {
	vb := scx.VertexBlock{
		Count:     3,
		Format:    scx.NewVertexTypeFlags(scx.VertexPosition | scx.VertexUV1 | scx.VertexColor),
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 2, -1}},
		UV1:       []mgl32.Vec2{{0, 1}, {1, 1}, {0, 0}},
		Colors:    []mgl32.Vec4{{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1}},
	}
	if withNormals {
		vb.Normals = []mgl32.Vec3{{0, 0, 2}, {0, 0, 1}, {0, 0, 0}}
	}
	return vb
}

func v4Material(name string, diffuseMap *uint32) *scx.Material {
	m := &scx.Material{Name: name, V4: &scx.MaterialV4{}}
	if diffuseMap != nil {
		m.V4.DiffuseMap = &scx.TextureMap{Index: *diffuseMap}
	}
	return m
}

func testScene() *scx.Scene {
	tex := uint32(0)
	return &scx.Scene{
		Version: 4,
		Meshes: []scx.Mesh{
			{
				Material:  v4Material("body", &tex),
				Vertices:  triangleBlock(true),
				Triangles: []scx.Triangle{{0, 1, 2}},
			},
			{
				Vertices:  triangleBlock(false),
				Triangles: []scx.Triangle{{0, 1, 2}, {2, 1, 0}},
			},
		},
	}
}

func attributeNames(p *gltf.Primitive) []string {
	var names []string
	for name := range p.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestBuild_Separate(t *testing.T) {
	b := New(DefaultOptions(), nil, nil)
	doc, report, err := b.Build(testScene(), "car", texlist.NewResolver([]string{"tex\\Body.dds"}))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(doc.Meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(doc.Meshes))
	}
	if doc.Meshes[0].Name != "body" || doc.Meshes[1].Name != "car" {
		t.Errorf("unexpected mesh names %q, %q", doc.Meshes[0].Name, doc.Meshes[1].Name)
	}

	if len(doc.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(doc.Nodes))
	}
	root := doc.Nodes[2]
	if root.Name != "car" || !reflect.DeepEqual(root.Children, []uint32{0, 1}) {
		t.Errorf("unexpected root node %+v", root)
	}
	if !reflect.DeepEqual(doc.Scenes[0].Nodes, []uint32{2}) {
		t.Errorf("scene nodes = %v", doc.Scenes[0].Nodes)
	}

	prim := doc.Meshes[0].Primitives[0]
	want := []string{"COLOR_0", "NORMAL", "POSITION", "TEXCOORD_0"}
	if got := attributeNames(prim); !reflect.DeepEqual(got, want) {
		t.Errorf("attributes = %v, want %v", got, want)
	}
	if n := doc.Accessors[prim.Attributes["POSITION"]].Count; n != 3 {
		t.Errorf("POSITION count = %d", n)
	}
	if prim.Indices == nil || doc.Accessors[*prim.Indices].Count != 3 {
		t.Error("expected 3 indices on the first primitive")
	}
	if prim.Material == nil {
		t.Fatal("expected a material on the first primitive")
	}

	second := doc.Meshes[1].Primitives[0]
	if second.Material != nil {
		t.Error("record without material should have no material")
	}
	if _, ok := second.Attributes["NORMAL"]; ok {
		t.Error("record without normals should have no NORMAL")
	}

	mat := doc.Materials[*prim.Material]
	if mat.Name != "body" || mat.AlphaMode != gltf.AlphaBlend {
		t.Errorf("unexpected material %+v", mat)
	}
	pbr := mat.PBRMetallicRoughness
	if *pbr.BaseColorFactor != [4]float32{1, 1, 1, 1} {
		t.Errorf("expected default white base color, got %v", *pbr.BaseColorFactor)
	}
	if *pbr.MetallicFactor != 0 || *pbr.RoughnessFactor != 0 {
		t.Error("expected metallic and roughness 0")
	}
	if pbr.BaseColorTexture == nil {
		t.Fatal("expected a base color texture")
	}

	texture := doc.Textures[pbr.BaseColorTexture.Index]
	img := doc.Images[*texture.Source]
	if img.Name != "Body" || img.URI != "tex/Body.dds" {
		t.Errorf("unexpected image %q -> %q", img.Name, img.URI)
	}

	if report.Meshes != 2 || report.Primitives != 2 || report.Materials != 1 || report.Textures != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.Faces != (FaceStats{Inserted: 2, Skipped: 1}) {
		t.Errorf("unexpected face stats %+v", report.Faces)
	}
	if report.Bounds.Min != (mgl32.Vec3{0, 0, -1}) || report.Bounds.Max != (mgl32.Vec3{1, 2, 0}) {
		t.Errorf("unexpected bounds %+v", report.Bounds)
	}
}

func TestBuild_Joined(t *testing.T) {
	opts := DefaultOptions()
	opts.JoinMeshes = true
	opts.SkipDoubleSideFaces = false

	doc, report, err := New(opts, nil, nil).Build(testScene(), "car", nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(doc.Meshes) != 1 || len(doc.Meshes[0].Primitives) != 2 {
		t.Fatalf("expected 1 mesh with 2 primitives, got %d meshes", len(doc.Meshes))
	}
	if len(doc.Nodes) != 1 || doc.Nodes[0].Name != "car" || doc.Nodes[0].Mesh == nil {
		t.Errorf("expected a single node carrying the mesh, got %d nodes", len(doc.Nodes))
	}
	if doc.Meshes[0].Name != "car" {
		t.Errorf("joined mesh name = %q", doc.Meshes[0].Name)
	}

	second := doc.Meshes[0].Primitives[1]
	if doc.Accessors[*second.Indices].Count != 6 {
		t.Errorf("expected the flipped back face to be kept, %d indices", doc.Accessors[*second.Indices].Count)
	}
	if report.Faces.Flipped != 1 {
		t.Errorf("expected 1 flipped face, got %+v", report.Faces)
	}

	// Without a texture list the image falls back to a synthesized name.
	img := doc.Images[0]
	if img.Name != "body_0x00000000" || img.URI != "body_0x00000000" {
		t.Errorf("unexpected fallback image %q -> %q", img.Name, img.URI)
	}
}

func TestBuild_ReuseMaterials(t *testing.T) {
	scene := &scx.Scene{Version: 4}
	for i := 0; i < 3; i++ {
		scene.Meshes = append(scene.Meshes, scx.Mesh{
			Material:  v4Material("hull", nil),
			Vertices:  triangleBlock(false),
			Triangles: []scx.Triangle{{0, 1, 2}},
		})
	}

	tests := []struct {
		reuse bool
		want  int
	}{
		{false, 3},
		{true, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("reuse=%v", tt.reuse), func(t *testing.T) {
			opts := DefaultOptions()
			opts.ReuseMaterials = tt.reuse

			doc, _, err := New(opts, nil, nil).Build(scene, "boat", nil)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if len(doc.Materials) != tt.want {
				t.Errorf("expected %d materials, got %d", tt.want, len(doc.Materials))
			}
		})
	}
}

func TestBuild_V3MaterialAndEmissive(t *testing.T) {
	vb := triangleBlock(false)
	vb.Emissive = []mgl32.Vec4{{1, 1, 1, 1}, {0, 0, 0, 0}, {1, 0, 0, 1}}
	vb.UV2 = []mgl32.Vec2{{0, 0}, {0, 0}, {0, 0}}
	vb.UV1 = nil

	scene := &scx.Scene{
		Version: 3,
		Meshes: []scx.Mesh{{
			Material: &scx.Material{V3: &scx.MaterialV3{
				Size:              56,
				DiffuseColor:      mgl32.Vec4{0.5, 0.5, 0.5, 1},
				SpecularColor:     mgl32.Vec3{1, 1, 1},
				SpecularIntensity: 0.25,
				DiffuseMap:        scx.NoTexture,
			}},
			Vertices:  vb,
			Triangles: []scx.Triangle{{0, 1, 2}},
		}},
	}

	doc, _, err := New(DefaultOptions(), nil, nil).Build(scene, "tree", nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	prim := doc.Meshes[0].Primitives[0]
	want := []string{"COLOR_0", "POSITION", "TEXCOORD_0", "_EMISSIVE"}
	if got := attributeNames(prim); !reflect.DeepEqual(got, want) {
		t.Errorf("attributes = %v, want %v", got, want)
	}

	mat := doc.Materials[0]
	if mat.Name != "tree" {
		t.Errorf("nameless material should take the model name, got %q", mat.Name)
	}
	if *mat.PBRMetallicRoughness.BaseColorFactor != [4]float32{0.5, 0.5, 0.5, 1} {
		t.Errorf("base color = %v", *mat.PBRMetallicRoughness.BaseColorFactor)
	}
	if mat.PBRMetallicRoughness.BaseColorTexture != nil {
		t.Error("0xFFFF diffuse map should not produce a texture")
	}
	if _, ok := mat.Extensions[specularExtension]; !ok {
		t.Error("expected specular extension")
	}
	if !reflect.DeepEqual(doc.ExtensionsUsed, []string{specularExtension}) {
		t.Errorf("ExtensionsUsed = %v", doc.ExtensionsUsed)
	}
}

func TestBuild_Empty(t *testing.T) {
	b := New(DefaultOptions(), nil, nil)

	if _, _, err := b.Build(&scx.Scene{Version: 4}, "empty", nil); !errors.Is(err, ErrEmptyScene) {
		t.Errorf("expected ErrEmptyScene, got %v", err)
	}

	noPositions := &scx.Scene{Version: 4, Meshes: []scx.Mesh{{
		Vertices: scx.VertexBlock{Count: 2, UV1: []mgl32.Vec2{{0, 0}, {1, 1}}},
	}}}
	_, report, err := b.Build(noPositions, "phys", nil)
	if !errors.Is(err, ErrEmptyScene) {
		t.Errorf("expected ErrEmptyScene, got %v", err)
	}
	if report.Skipped != 1 {
		t.Errorf("expected 1 skipped record, got %d", report.Skipped)
	}
}

func TestBuild_PointsWithoutFaces(t *testing.T) {
	scene := &scx.Scene{Version: 4, Meshes: []scx.Mesh{{Vertices: triangleBlock(false)}}}

	doc, _, err := New(DefaultOptions(), nil, nil).Build(scene, "dots", nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	prim := doc.Meshes[0].Primitives[0]
	if prim.Indices != nil || prim.Mode != gltf.PrimitivePoints {
		t.Errorf("expected unindexed points, got mode %v", prim.Mode)
	}
}

func TestVertexConversions(t *testing.T) {
	got := colors([]mgl32.Vec4{{0, 0.2, 0.4, 1}, {-1, 2, 0.5, 0}})
	want := [][4]uint8{{0, 51, 102, 255}, {0, 255, 128, 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("colors = %v, want %v", got, want)
	}

	n := normals([]mgl32.Vec3{{0, 0, 2}, {0, 0, 0}, {3, 0, 4}})
	wantN := [][3]float32{{0, 0, 1}, {0, 0, 1}, {0.6, 0, 0.8}}
	for i := range n {
		for j := 0; j < 3; j++ {
			if d := n[i][j] - wantN[i][j]; d > 1e-6 || d < -1e-6 {
				t.Errorf("normal %d = %v, want %v", i, n[i], wantN[i])
				break
			}
		}
	}
}

func TestTextureCache(t *testing.T) {
	c := NewTextureCache()

	first := c.URI(texlist.Texture{Name: "body", Path: "a\\body.dds"})
	if first != "a/body.dds" {
		t.Errorf("URI = %q", first)
	}
	if again := c.URI(texlist.Texture{Name: "body", Path: "b/body.tga"}); again != first {
		t.Errorf("expected the first path to win, got %q", again)
	}
	if got := c.URI(texlist.Texture{Name: "glass_0x00000001"}); got != "glass_0x00000001" {
		t.Errorf("pathless URI = %q", got)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.URI(texlist.Texture{Name: fmt.Sprintf("tex%d", i%4), Path: fmt.Sprintf("p%d.dds", i)})
		}(i)
	}
	wg.Wait()

	if c.Len() != 6 {
		t.Errorf("expected 6 cached names, got %d", c.Len())
	}
}

func TestExport(t *testing.T) {
	doc, _, err := New(DefaultOptions(), nil, nil).Build(testScene(), "car", nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var glb bytes.Buffer
	if err := Export(&glb, doc, true); err != nil {
		t.Fatalf("binary export failed: %v", err)
	}
	if !bytes.HasPrefix(glb.Bytes(), []byte("glTF")) {
		t.Errorf("expected GLB magic, got %q", glb.Bytes()[:4])
	}

	var js bytes.Buffer
	if err := Export(&js, doc, false); err != nil {
		t.Fatalf("JSON export failed: %v", err)
	}
	if !strings.Contains(js.String(), dataURIPrefix) {
		t.Error("expected embedded buffer data URI")
	}

	decoded := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(js.Bytes())).Decode(decoded); err != nil {
		t.Fatalf("failed to decode exported JSON: %v", err)
	}
	if len(decoded.Meshes) != 2 || len(decoded.Nodes) != 3 {
		t.Errorf("decoded %d meshes and %d nodes", len(decoded.Meshes), len(decoded.Nodes))
	}
}

func TestExportFile(t *testing.T) {
	doc, _, err := New(DefaultOptions(), nil, nil).Build(testScene(), "car", nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	path := OutputPath(dir, filepath.Join("models", "car.scx"), true)
	if filepath.Base(path) != "car.glb" {
		t.Errorf("OutputPath = %s", path)
	}

	if err := ExportFile(path, doc, true); err != nil {
		t.Fatalf("ExportFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Errorf("expected non-empty %s: %v", path, err)
	}

	if got := OutputPath(dir, "car.SCY", false); filepath.Base(got) != "car.gltf" {
		t.Errorf("OutputPath = %s", got)
	}
	if got := ModelName(filepath.Join("a", "b", "truck.scx")); got != "truck" {
		t.Errorf("ModelName = %q", got)
	}
}
