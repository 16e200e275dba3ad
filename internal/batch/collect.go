package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Collect expands root into the SCX files to convert. root may be a file, a
// glob pattern, or a directory; directories are scanned for the given
// extensions, descending into subdirectories only when recursive is set.
func Collect(root string, exts []string, recursive bool) ([]string, error) {
	if strings.ContainsAny(root, "*?[") {
		matches, err := filepath.Glob(root)
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", root)
		}
		sort.Strings(matches)
		return matches, nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", root)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if hasExt(path, exts) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scanning %s", root)
	}
	return paths, nil
}

func hasExt(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
