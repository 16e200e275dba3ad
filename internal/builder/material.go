package builder

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/Faultbox/scx-tools/pkg/scx"
)

// specularExtension carries specular color and intensity, which the metallic
// roughness model has no slot for.
const specularExtension = "KHR_materials_specular"

var defaultBaseColor = mgl32.Vec4{1, 1, 1, 1}

// addMaterial appends a glTF material named name for m and returns its
// index. With ReuseMaterials an existing material of the same name is
// returned instead.
func (s *buildState) addMaterial(m *scx.Material, name string) uint32 {
	if s.opts.ReuseMaterials {
		if idx, ok := s.materials[name]; ok {
			return idx
		}
	}

	base := defaultBaseColor
	if c, ok := m.DiffuseColor(); ok {
		base = c
	}
	baseColor := [4]float32(base)
	metallic := float32(0)
	roughness := float32(0)

	mat := &gltf.Material{
		Name:      name,
		AlphaMode: gltf.AlphaBlend,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &baseColor,
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
	}

	if idx, ok := m.DiffuseTexture(); ok {
		tex := s.textures.Resolve(idx, name)
		mat.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
			Index: s.addTexture(tex.Name, s.cache.URI(tex)),
		}
	}

	if ext := specular(m); ext != nil {
		mat.Extensions = gltf.Extensions{specularExtension: ext}
		s.useExtension(specularExtension)
	}

	idx := uint32(len(s.doc.Materials))
	s.doc.Materials = append(s.doc.Materials, mat)
	if _, ok := s.materials[name]; !ok {
		s.materials[name] = idx
	}
	return idx
}

func specular(m *scx.Material) map[string]any {
	ext := make(map[string]any)
	if v, ok := m.SpecularIntensity(); ok {
		ext["specularFactor"] = v
	}
	if c, ok := m.SpecularColor(); ok {
		ext["specularColorFactor"] = [3]float32(c)
	}
	if len(ext) == 0 {
		return nil
	}
	return ext
}

// addTexture returns the texture index for name, adding an image and a
// texture on first use within the document.
func (s *buildState) addTexture(name, uri string) uint32 {
	if idx, ok := s.texIndex[name]; ok {
		return idx
	}

	s.doc.Images = append(s.doc.Images, &gltf.Image{Name: name, URI: uri})
	img := uint32(len(s.doc.Images) - 1)

	s.doc.Textures = append(s.doc.Textures, &gltf.Texture{
		Name:    name,
		Sampler: gltf.Index(s.sampler()),
		Source:  gltf.Index(img),
	})
	idx := uint32(len(s.doc.Textures) - 1)
	s.texIndex[name] = idx
	return idx
}

// sampler returns the shared repeat/linear sampler, adding it on first use.
func (s *buildState) sampler() uint32 {
	if s.samplerIdx == nil {
		s.doc.Samplers = append(s.doc.Samplers, &gltf.Sampler{
			MagFilter: gltf.MagLinear,
			MinFilter: gltf.MinLinear,
			WrapS:     gltf.WrapRepeat,
			WrapT:     gltf.WrapRepeat,
		})
		s.samplerIdx = gltf.Index(uint32(len(s.doc.Samplers) - 1))
	}
	return *s.samplerIdx
}

func (s *buildState) useExtension(name string) {
	for _, used := range s.doc.ExtensionsUsed {
		if used == name {
			return
		}
	}
	s.doc.ExtensionsUsed = append(s.doc.ExtensionsUsed, name)
}
