package builder

import (
	"strings"
	"sync"

	"github.com/Faultbox/scx-tools/pkg/texlist"
)

// TextureCache maps texture names to image URIs. The first path seen for a
// name wins, so every model of a batch that refers to the same texture name
// points at the same file. Safe for concurrent use.
type TextureCache struct {
	mu   sync.RWMutex
	uris map[string]string
}

// NewTextureCache creates an empty cache.
func NewTextureCache() *TextureCache {
	return &TextureCache{uris: make(map[string]string)}
}

// URI returns the image URI for a resolved texture. Textures without a path
// use their name.
func (c *TextureCache) URI(tex texlist.Texture) string {
	c.mu.RLock()
	uri, ok := c.uris[tex.Name]
	c.mu.RUnlock()
	if ok {
		return uri
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if uri, ok := c.uris[tex.Name]; ok {
		return uri
	}
	uri = imageURI(tex)
	c.uris[tex.Name] = uri
	return uri
}

// Len returns the number of cached names.
func (c *TextureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.uris)
}

func imageURI(tex texlist.Texture) string {
	if tex.Path == "" {
		return tex.Name
	}
	return strings.ReplaceAll(tex.Path, "\\", "/")
}
