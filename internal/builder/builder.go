// Package builder converts decoded SCX scenes into glTF 2.0 documents.
package builder

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/scx-tools/pkg/scx"
	"github.com/Faultbox/scx-tools/pkg/texlist"
)

// ErrEmptyScene is returned when a scene has nothing to export.
var ErrEmptyScene = errors.New("scene has no exportable meshes")

var errNoPositions = errors.New("vertex block has no positions")

// emissiveAttribute holds v4 per-vertex emissive colors.
const emissiveAttribute = "_EMISSIVE"

// Options controls how a scene is turned into a document.
type Options struct {
	// JoinMeshes merges every record into one mesh with one primitive per record.
	JoinMeshes bool
	// ReuseMaterials reuses an already added material with the same name.
	ReuseMaterials bool
	// SkipDoubleSideFaces drops back faces instead of emitting them flipped.
	SkipDoubleSideFaces bool
}

// DefaultOptions returns the importer defaults.
func DefaultOptions() Options {
	return Options{SkipDoubleSideFaces: true}
}

// Bounds is an axis-aligned bounding box in scene space.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (b *Bounds) extend(ps []mgl32.Vec3, first bool) {
	for i, p := range ps {
		if first && i == 0 {
			b.Min, b.Max = p, p
			continue
		}
		for j := 0; j < 3; j++ {
			b.Min[j] = min(b.Min[j], p[j])
			b.Max[j] = max(b.Max[j], p[j])
		}
	}
}

// Report summarizes one build.
type Report struct {
	Meshes     int // glTF meshes written
	Primitives int
	Skipped    int // records dropped for lack of positions
	Materials  int
	Textures   int
	Faces      FaceStats
	Bounds     Bounds
}

// Builder turns scenes into glTF documents. A Builder may be shared by
// several goroutines; only its TextureCache is mutated.
type Builder struct {
	opts  Options
	cache *TextureCache
	log   *zap.Logger
}

// New creates a builder. A nil cache gets a private one; a nil logger
// disables logging.
func New(opts Options, cache *TextureCache, log *zap.Logger) *Builder {
	if cache == nil {
		cache = NewTextureCache()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{opts: opts, cache: cache, log: log}
}

// Options returns the builder options.
func (b *Builder) Options() Options {
	return b.opts
}

// buildState is the per-document state of one Build call.
type buildState struct {
	opts       Options
	doc        *gltf.Document
	cache      *TextureCache
	textures   *texlist.Resolver
	materials  map[string]uint32
	texIndex   map[string]uint32
	samplerIdx *uint32
}

// Build converts scene into a document rooted at a node called name.
// Without JoinMeshes the root has one child node per record; with it, the
// root node itself carries a single mesh. textures may be nil.
func (b *Builder) Build(scene *scx.Scene, name string, textures *texlist.Resolver) (*gltf.Document, Report, error) {
	var report Report
	if scene == nil || len(scene.Meshes) == 0 {
		return nil, report, errors.Wrapf(ErrEmptyScene, "building %q", name)
	}

	s := &buildState{
		opts:      b.opts,
		doc:       gltf.NewDocument(),
		cache:     b.cache,
		textures:  textures,
		materials: make(map[string]uint32),
		texIndex:  make(map[string]uint32),
	}
	log := b.log.With(zap.String("model", name))

	var joined []*gltf.Primitive
	var children []uint32

	for i := range scene.Meshes {
		rec := &scene.Meshes[i]
		meshName := rec.Name(name)

		prim, stats, err := s.addPrimitive(rec, meshName)
		if errors.Is(err, errNoPositions) {
			log.Warn("skipping mesh without positions",
				zap.Int("index", i),
				zap.String("mesh", meshName),
				zap.Stringer("format", rec.Vertices.Format))
			report.Skipped++
			continue
		}
		if err != nil {
			return nil, report, errors.Wrapf(err, "mesh %d (%s)", i, meshName)
		}

		report.Bounds.extend(rec.Vertices.Positions, report.Primitives == 0)
		report.Primitives++
		report.Faces.Add(stats)

		log.Debug("mesh",
			zap.Int("index", i),
			zap.String("mesh", meshName),
			zap.Int("vertices", rec.Vertices.Count),
			zap.Int("triangles", len(rec.Triangles)),
			zap.Int("faces_skipped", stats.Skipped),
			zap.Int("faces_flipped", stats.Flipped),
			zap.Stringer("format", rec.Vertices.Format))

		if b.opts.JoinMeshes {
			joined = append(joined, prim)
			continue
		}
		mesh := s.addMesh(meshName, prim)
		children = append(children, s.addNode(&gltf.Node{Name: meshName, Mesh: gltf.Index(mesh)}))
	}

	if report.Primitives == 0 {
		return nil, report, errors.Wrapf(ErrEmptyScene, "building %q", name)
	}

	var root uint32
	if b.opts.JoinMeshes {
		mesh := s.addMesh(name, joined...)
		root = s.addNode(&gltf.Node{Name: name, Mesh: gltf.Index(mesh)})
	} else {
		root = s.addNode(&gltf.Node{Name: name, Children: children})
	}
	s.doc.Scenes[0].Nodes = append(s.doc.Scenes[0].Nodes, root)

	report.Meshes = len(s.doc.Meshes)
	report.Materials = len(s.doc.Materials)
	report.Textures = len(s.doc.Textures)
	return s.doc, report, nil
}

func (s *buildState) addMesh(name string, prims ...*gltf.Primitive) uint32 {
	s.doc.Meshes = append(s.doc.Meshes, &gltf.Mesh{Name: name, Primitives: prims})
	return uint32(len(s.doc.Meshes) - 1)
}

func (s *buildState) addNode(n *gltf.Node) uint32 {
	s.doc.Nodes = append(s.doc.Nodes, n)
	return uint32(len(s.doc.Nodes) - 1)
}

// addPrimitive writes the vertex attributes and faces of one record.
func (s *buildState) addPrimitive(rec *scx.Mesh, name string) (*gltf.Primitive, FaceStats, error) {
	vb := &rec.Vertices
	if len(vb.Positions) == 0 {
		return nil, FaceStats{}, errNoPositions
	}
	if len(vb.Positions) != vb.Count {
		return nil, FaceStats{}, errors.Errorf("%d positions for %d vertices", len(vb.Positions), vb.Count)
	}

	attrs := map[string]uint32{
		"POSITION": modeler.WritePosition(s.doc, vec3s(vb.Positions)),
	}
	if len(vb.Normals) > 0 {
		attrs["NORMAL"] = modeler.WriteNormal(s.doc, normals(vb.Normals))
	}

	// Texture coordinate sets must be numbered without gaps.
	set := 0
	for _, uv := range [][]mgl32.Vec2{vb.UV1, vb.UV2, vb.UV3} {
		if len(uv) == 0 {
			continue
		}
		attrs[fmt.Sprintf("TEXCOORD_%d", set)] = modeler.WriteTextureCoord(s.doc, vec2s(uv))
		set++
	}

	if len(vb.Colors) > 0 {
		attrs["COLOR_0"] = modeler.WriteColor(s.doc, colors(vb.Colors))
	}
	if len(vb.Emissive) > 0 {
		attrs[emissiveAttribute] = modeler.WriteColor(s.doc, colors(vb.Emissive))
	}

	prim := &gltf.Primitive{Attributes: attrs}

	indices, results := BuildFaces(rec.Triangles, vb.Count, s.opts.SkipDoubleSideFaces)
	if len(indices) > 0 {
		prim.Indices = gltf.Index(modeler.WriteIndices(s.doc, indices))
	} else {
		prim.Mode = gltf.PrimitivePoints
	}

	if rec.Material != nil {
		prim.Material = gltf.Index(s.addMaterial(rec.Material, name))
	}

	return prim, CountFaces(results), nil
}

func vec3s(vs []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func vec2s(vs []mgl32.Vec2) [][2]float32 {
	out := make([][2]float32, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// normals returns unit normals. Zero-length normals point up.
func normals(vs []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(vs))
	for i, v := range vs {
		if v.Len() < 1e-6 {
			out[i] = [3]float32{0, 0, 1}
			continue
		}
		out[i] = v.Normalize()
	}
	return out
}

func colors(cs []mgl32.Vec4) [][4]uint8 {
	out := make([][4]uint8, len(cs))
	for i, c := range cs {
		for j := 0; j < 4; j++ {
			out[i][j] = uint8(math.Round(float64(mgl32.Clamp(c[j], 0, 1) * 255)))
		}
	}
	return out
}
