package export

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/pmxport/internal/scene"
	"github.com/Faultbox/pmxport/internal/texture"
	"github.com/Faultbox/pmxport/pkg/encoding"
	pmath "github.com/Faultbox/pmxport/pkg/math"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

// Faces whose slot is empty render with this material.
const (
	defaultMaterialKey  = ""
	defaultMaterialName = "Material"
)

func defaultMaterial(name string) *scene.Material {
	if name == defaultMaterialKey {
		name = defaultMaterialName
	}
	return &scene.Material{
		Name:          name,
		Diffuse:       pmath.Vec3{X: 0.8, Y: 0.8, Z: 0.8},
		Alpha:         1,
		Ambient:       pmath.Vec3{X: 0.4, Y: 0.4, Z: 0.4},
		Specular:      pmath.Vec3{X: 0.625, Y: 0.625, Z: 0.625},
		Shininess:     50,
		DropShadow:    true,
		SelfShadowMap: true,
		SelfShadow:    true,
		EdgeColor:     pmath.Vec4{W: 1},
		EdgeWeight:    1,
	}
}

// TextureTable deduplicates texture paths for one export. Paths are made
// absolute and compared case-insensitively.
type TextureTable struct {
	paths []string
	index map[string]int
	probe bool
	diags *diagnostics
}

func newTextureTable(probe bool, diags *diagnostics) *TextureTable {
	return &TextureTable{index: make(map[string]int), probe: probe, diags: diags}
}

// Add returns the table index of path, appending it on first use. Blank
// paths map to -1.
func (t *TextureTable) Add(path string) int {
	if strings.TrimSpace(path) == "" {
		return -1
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	key := encoding.NormalizePath(abs)
	if i, ok := t.index[key]; ok {
		return i
	}
	t.index[key] = len(t.paths)
	t.paths = append(t.paths, abs)
	t.check(abs)
	return len(t.paths) - 1
}

func (t *TextureTable) check(path string) {
	if !t.probe {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			t.diags.add(compMaterials, CodeTextureMissing, path, "file does not exist")
		}
		return
	}
	if _, err := texture.Probe(path); err != nil {
		if errors.Is(err, texture.ErrNotFound) {
			t.diags.add(compMaterials, CodeTextureMissing, path, "file does not exist")
		} else {
			t.diags.add(compMaterials, CodeTextureUnreadable, path, "%v", err)
		}
	}
}

// Paths returns the table. With base set, paths are made relative to it.
func (t *TextureTable) Paths(base string) []string {
	out := make([]string, len(t.paths))
	for i, p := range t.paths {
		if base != "" {
			out[i] = encoding.RelativeTo(p, base)
		} else {
			out[i] = p
		}
	}
	return out
}

// materialTable is the exported material list with the scene name of each
// entry, used to resolve material morphs.
type materialTable struct {
	names []string
}

func (t *materialTable) indexOf(name string) int {
	for i, n := range t.names {
		if n == name {
			return i
		}
	}
	return -1
}

func exportMaterial(m *scene.Material, faces int, textures *TextureTable, disableSpecular bool) pmx.Material {
	pm := pmx.Material{
		Name:        nameOr(m.NameJ, m.Name),
		NameE:       m.NameE,
		Diffuse:     pmath.Vec4{X: m.Diffuse.X, Y: m.Diffuse.Y, Z: m.Diffuse.Z, W: m.Alpha},
		Specular:    m.Specular,
		Shininess:   m.Shininess,
		Ambient:     m.Ambient,
		EdgeColor:   m.EdgeColor,
		EdgeSize:    m.EdgeWeight,
		SphereMode:  uint8(m.SphereMode),
		Comment:     m.Comment,
		VertexCount: faces * 3,
	}
	flag := func(on bool, bit uint8) {
		if on {
			pm.Flags |= bit
		}
	}
	flag(m.DoubleSided, pmx.MaterialDoubleSided)
	flag(m.DropShadow, pmx.MaterialDropShadow)
	flag(m.SelfShadowMap, pmx.MaterialSelfShadowMap)
	flag(m.SelfShadow, pmx.MaterialSelfShadow)
	flag(m.ToonEdge, pmx.MaterialToonEdge)
	if disableSpecular {
		pm.SphereMode = pmx.SphereModeOff
	}

	pm.Texture = textures.Add(m.Texture)
	pm.SphereTexture = textures.Add(m.SphereTexture)
	if m.SharedToon {
		pm.SharedToon = true
		pm.ToonTexture = m.SharedToonIndex
	} else {
		pm.ToonTexture = textures.Add(m.ToonTexture)
	}
	return pm
}

// sortMaterials reorders materials, their face runs and the name table by
// the mean distance of their face corners from the vertex centroid, nearest
// first. Alpha-blended parts further out then draw last.
func sortMaterials(model *pmx.Model, names *materialTable) {
	if len(model.Vertices) == 0 {
		return
	}
	var center pmath.Vec3
	n := float32(len(model.Vertices))
	for _, v := range model.Vertices {
		center = center.Add(v.Position.Scale(1 / n))
	}

	type run struct {
		dist  float32
		mat   pmx.Material
		name  string
		faces [][3]int
	}
	runs := make([]run, len(model.Materials))
	offset := 0
	for i, mat := range model.Materials {
		count := mat.VertexCount / 3
		faces := model.Faces[offset : offset+count]
		var d float32
		for _, f := range faces {
			for _, vi := range f {
				d += model.Vertices[vi].Position.Distance(center)
			}
		}
		if mat.VertexCount > 0 {
			d /= float32(mat.VertexCount)
		}
		runs[i] = run{dist: d, mat: mat, name: names.names[i], faces: faces}
		offset += count
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].dist < runs[j].dist })

	faces := make([][3]int, 0, len(model.Faces))
	for i, r := range runs {
		model.Materials[i] = r.mat
		names.names[i] = r.name
		faces = append(faces, r.faces...)
	}
	model.Faces = faces
}
