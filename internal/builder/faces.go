package builder

import (
	"sort"

	"github.com/Faultbox/scx-tools/pkg/scx"
)

// FaceResult is the outcome of inserting one triangle.
type FaceResult int

const (
	// FaceInserted means the triangle was emitted as stored.
	FaceInserted FaceResult = iota
	// FaceSkipped means the triangle was dropped: degenerate, out of range,
	// or a repeat of an existing face while double-sided faces are skipped.
	FaceSkipped
	// FaceDuplicatedFlipped means the triangle repeated an existing face and
	// was emitted again with reversed winding.
	FaceDuplicatedFlipped
)

func (r FaceResult) String() string {
	switch r {
	case FaceInserted:
		return "inserted"
	case FaceSkipped:
		return "skipped"
	case FaceDuplicatedFlipped:
		return "duplicated-flipped"
	}
	return "unknown"
}

// FaceStats counts face results.
type FaceStats struct {
	Inserted int
	Skipped  int
	Flipped  int
}

// Add accumulates another set of counts.
func (s *FaceStats) Add(o FaceStats) {
	s.Inserted += o.Inserted
	s.Skipped += o.Skipped
	s.Flipped += o.Flipped
}

// faceKey identifies a face by its vertex set, ignoring winding.
type faceKey [3]uint32

func keyOf(t scx.Triangle) faceKey {
	k := faceKey(t)
	sort.Slice(k[:], func(i, j int) bool { return k[i] < k[j] })
	return k
}

// BuildFaces turns triangles into a flat index list. A triangle whose vertex
// set was already used is a back face: it is dropped when skipDoubleSide is
// set and emitted with reversed winding otherwise.
func BuildFaces(tris []scx.Triangle, vertexCount int, skipDoubleSide bool) ([]uint32, []FaceResult) {
	indices := make([]uint32, 0, len(tris)*3)
	results := make([]FaceResult, len(tris))
	seen := make(map[faceKey]struct{}, len(tris))

	for i, t := range tris {
		if !validTriangle(t, vertexCount) {
			results[i] = FaceSkipped
			continue
		}

		key := keyOf(t)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			indices = append(indices, t[0], t[1], t[2])
			results[i] = FaceInserted
			continue
		}

		if skipDoubleSide {
			results[i] = FaceSkipped
			continue
		}
		indices = append(indices, t[0], t[2], t[1])
		results[i] = FaceDuplicatedFlipped
	}

	return indices, results
}

// CountFaces tallies a result list.
func CountFaces(results []FaceResult) FaceStats {
	var s FaceStats
	for _, r := range results {
		switch r {
		case FaceInserted:
			s.Inserted++
		case FaceSkipped:
			s.Skipped++
		case FaceDuplicatedFlipped:
			s.Flipped++
		}
	}
	return s
}

func validTriangle(t scx.Triangle, vertexCount int) bool {
	for _, v := range t {
		if int64(v) >= int64(vertexCount) {
			return false
		}
	}
	return t[0] != t[1] && t[1] != t[2] && t[0] != t[2]
}
