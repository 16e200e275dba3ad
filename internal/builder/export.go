package builder

import (
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

const dataURIPrefix = "data:application/octet-stream;base64,"

// Export writes doc to w as binary GLB, or as glTF JSON with its buffers
// embedded as data URIs.
func Export(w io.Writer, doc *gltf.Document, binary bool) error {
	if !binary {
		for _, b := range doc.Buffers {
			if b.URI == "" {
				b.URI = dataURIPrefix + base64.StdEncoding.EncodeToString(b.Data)
			}
		}
	}

	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding glTF")
	}
	return nil
}

// ExportFile writes doc to path, creating parent directories.
func ExportFile(path string, doc *gltf.Document, binary bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "creating output directory for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}

	if err := Export(f, doc, binary); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}

// OutputPath returns the export path for an SCX file inside dir.
func OutputPath(dir, scxPath string, binary bool) string {
	stem := ModelName(scxPath)
	if binary {
		return filepath.Join(dir, stem+".glb")
	}
	return filepath.Join(dir, stem+".gltf")
}

// ModelName returns the node name used for an SCX file.
func ModelName(scxPath string) string {
	base := filepath.Base(scxPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
