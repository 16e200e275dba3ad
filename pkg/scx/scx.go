// Package scx provides a parser for Invictus SCX mesh containers.
//
// SCX files start with the magic "INVO" and a version number. Version 3 is a
// flat stream of (material, vertices, indices) records; version 4 is a table
// of typed entries addressed by absolute offset. Both decode into a Scene.
package scx

import (
	"fmt"
	"io"
	"os"
)

const scxMagic = "INVO"

// Supported container versions.
const (
	Version3 uint32 = 3
	Version4 uint32 = 4
)

// Parse decodes an SCX container from a byte slice.
func Parse(data []byte) (*Scene, error) {
	if len(data) < len(scxMagic) {
		return nil, ErrBadSignature
	}

	c := NewCursor(data)

	magic, err := c.ReadFixedString(len(scxMagic))
	if err != nil {
		return nil, ErrBadSignature
	}
	if magic != scxMagic {
		return nil, ErrBadSignature
	}

	version, err := c.ReadUint32()
	if err != nil {
		return nil, err
	}

	switch version {
	case Version3:
		return decodeV3(c)
	case Version4:
		return decodeV4(c)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
}

// ParseReader reads r to the end and decodes the result.
func ParseReader(r io.Reader) (*Scene, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading SCX data: %w", err)
	}
	return Parse(data)
}

// ParseFile parses an SCX file from disk.
func ParseFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading SCX file: %w", err)
	}
	return Parse(data)
}
