// Package texlist reads the ".tex" sidecar that maps SCX texture slot
// indices to texture file names, and resolves indices against it.
package texlist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/Faultbox/scx-tools/pkg/encoding"
)

// ErrDecodeFailure means the sidecar could not be decoded in any of the
// attempted encodings. The list is treated as empty.
var ErrDecodeFailure = errors.New("texture list not decodable")

// sidecarExt is the extension of texture list files.
const sidecarExt = ".tex"

// nameMarker separates an optional prefix from the texture name on a line.
const nameMarker = ">>>>>"

// SidecarPath returns the texture list path for an SCX file.
func SidecarPath(scxPath string) string {
	return strings.TrimSuffix(scxPath, filepath.Ext(scxPath)) + sidecarExt
}

// Load reads and parses a texture list. A missing file yields an empty list
// and no error. ansi is the code page tried after UTF-8; nil means
// encoding.DefaultANSI.
func Load(path string, ansi xencoding.Encoding) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading texture list: %w", err)
	}
	return Parse(data, ansi)
}

// Parse decodes a texture list trying UTF-8, then the ANSI code page, then
// Windows-1251. When all fail it returns an empty list and ErrDecodeFailure.
func Parse(data []byte, ansi xencoding.Encoding) ([]string, error) {
	if ansi == nil {
		enc, err := encoding.LookupCodePage(encoding.DefaultANSI)
		if err != nil {
			return nil, err
		}
		ansi = enc
	}

	if text, err := encoding.DecodeUTF8(data); err == nil {
		return parseLines(text), nil
	}
	if text, err := encoding.DecodeStrict(data, ansi); err == nil {
		return parseLines(text), nil
	}
	if text, err := encoding.DecodeStrict(data, charmap.Windows1251); err == nil {
		return parseLines(text), nil
	}
	return nil, ErrDecodeFailure
}

// parseLines keeps the first whitespace-separated token of each line and
// stops at the first blank line.
func parseLines(text string) []string {
	var names []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		fields := strings.Fields(strings.Trim(sc.Text(), "\r\n"))
		if len(fields) == 0 {
			break
		}
		name := fields[0]
		if _, after, found := strings.Cut(name, nameMarker); found {
			name = after
		}
		names = append(names, name)
	}
	return names
}

// Texture is a resolved texture reference.
type Texture struct {
	Name string // Display name (file stem, or synthesized)
	Path string // Path from the list; empty when synthesized
}

// Resolver maps texture indices to names.
type Resolver struct {
	names []string
}

// NewResolver returns a resolver over an ordered texture list.
func NewResolver(names []string) *Resolver {
	return &Resolver{names: names}
}

// Len returns the number of listed textures.
func (r *Resolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Names returns the listed texture paths.
func (r *Resolver) Names() []string {
	if r == nil {
		return nil
	}
	return r.names
}

// Resolve returns the texture at index. Indices outside the list resolve to
// a synthesized lowercase name "<material>_0x<INDEX>" with no path.
func (r *Resolver) Resolve(index int, materialName string) Texture {
	if r != nil && index >= 0 && index < len(r.names) {
		p := r.names[index]
		return Texture{Name: stem(p), Path: p}
	}
	return Texture{Name: strings.ToLower(fmt.Sprintf("%s_0x%08X", materialName, index))}
}

// Name returns only the display name of Resolve.
func (r *Resolver) Name(index int, materialName string) string {
	return r.Resolve(index, materialName).Name
}

// stem returns the base name without extension. Backslashes count as
// separators since lists are written on Windows.
func stem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
