package export

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/pmxport/internal/scene"
	pmath "github.com/Faultbox/pmxport/pkg/math"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

var categories = map[string]uint8{
	"SYSTEM":  pmx.CategorySystem,
	"EYEBROW": pmx.CategoryEyebrow,
	"EYE":     pmx.CategoryEye,
	"MOUTH":   pmx.CategoryMouth,
}

func category(name string) uint8 {
	if c, ok := categories[name]; ok {
		return c
	}
	return pmx.CategoryOther
}

// morphEntry is a flattened morph with the scene kind it is referenced by.
// Group morphs keep their references until the final order is known.
type morphEntry struct {
	kind  scene.MorphKind
	morph pmx.Morph
	refs  []scene.GroupMorphData
}

func (e *morphEntry) key() scene.MorphRef {
	return scene.MorphRef{Kind: e.kind, Name: e.morph.Name}
}

func newMorphEntry(kind scene.MorphKind, pk pmx.MorphKind, def *scene.Morph) *morphEntry {
	return &morphEntry{
		kind: kind,
		morph: pmx.Morph{
			Name:     def.Name,
			NameE:    def.NameE,
			Category: category(def.Category),
			Kind:     pk,
		},
	}
}

// morphFlattener turns morph definitions into PMX morphs against the final
// vertex, bone and material tables.
type morphFlattener struct {
	scale     float32
	arm       *scene.Armature
	bones     *boneTable
	materials *materialTable
	vertices  []*vertex // exported vertices in index order
	diags     *diagnostics
	log       *zap.Logger
}

// exportedByIndex returns the emitted vertices ordered by their final index.
func exportedByIndex(emitted []*vertex) []*vertex {
	out := append([]*vertex(nil), emitted...)
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}

// vertexMorphs builds one morph per shape key name, in first-encounter order
// across meshes. When defs is given, names are reordered by their position
// in it; names it does not list come first.
func (f *morphFlattener) vertexMorphs(meshes []*loadedMesh, defs []*scene.Morph, ordered bool) []*morphEntry {
	var names []string
	seen := make(map[string]bool)
	for _, m := range meshes {
		for _, name := range m.shapeKeys {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	meta := make(map[string]*scene.Morph)
	pos := make(map[string]int)
	for i, d := range defs {
		if _, ok := meta[d.Name]; !ok {
			meta[d.Name] = d
			pos[d.Name] = i
		}
	}
	if ordered {
		rank := func(name string) int {
			if p, ok := pos[name]; ok {
				return p
			}
			return -1
		}
		sort.SliceStable(names, func(i, j int) bool { return rank(names[i]) < rank(names[j]) })
	}

	entries := make([]*morphEntry, len(names))
	byName := make(map[string]*morphEntry, len(names))
	for i, name := range names {
		def := meta[name]
		if def == nil {
			def = &scene.Morph{Name: name}
		}
		e := newMorphEntry(scene.MorphVertex, pmx.MorphVertex, def)
		e.morph.Name = name
		entries[i] = e
		byName[name] = e
	}

	for _, v := range f.vertices {
		for _, name := range sortedKeys(v.src.offsets) {
			e := byName[name]
			e.morph.Vertex = append(e.morph.Vertex, pmx.VertexOffset{Vertex: v.index, Offset: v.src.offsets[name]})
		}
	}
	return entries
}

func (f *morphFlattener) boneMorphs(defs []*scene.Morph) []*morphEntry {
	world := pmath.Identity()
	if f.arm != nil {
		world = f.arm.World
	}
	converters := make(map[string]boneConverter)

	var entries []*morphEntry
	for _, def := range defs {
		e := newMorphEntry(scene.MorphBone, pmx.MorphBone, def)
		for _, data := range def.Bones {
			index := f.bones.indexOf(data.Bone)
			var bone *scene.Bone
			if f.arm != nil {
				bone = f.arm.Bone(data.Bone)
			}
			if index < 0 || bone == nil {
				f.diags.add(compMorphs, CodeBoneMorphBoneMissing, def.Name, "bone %q is not exported", data.Bone)
				continue
			}
			conv, ok := converters[data.Bone]
			if !ok {
				conv = newBoneConverter(world, bone.RestMatrix, f.scale)
				converters[data.Bone] = conv
			}
			e.morph.Bone = append(e.morph.Bone, pmx.BoneOffset{
				Bone:     index,
				Location: conv.location(data.Location),
				Rotation: conv.rotation(data.Rotation),
			})
		}
		entries = append(entries, e)
	}
	return entries
}

func (f *morphFlattener) materialMorphs(defs []*scene.Morph) []*morphEntry {
	var entries []*morphEntry
	for _, def := range defs {
		e := newMorphEntry(scene.MorphMaterial, pmx.MorphMaterial, def)
		for _, data := range def.Materials {
			index := -1
			if data.Material != "" {
				if index = f.materials.indexOf(data.Material); index < 0 {
					f.diags.add(compMorphs, CodeMaterialMorphMissing, def.Name, "material %q was not found", data.Material)
					continue
				}
			}
			offsetType := pmx.MaterialOffsetMult
			if data.OffsetType == "ADD" {
				offsetType = pmx.MaterialOffsetAdd
			}
			e.morph.Material = append(e.morph.Material, pmx.MaterialOffset{
				Material:   index,
				OffsetType: offsetType,
				Diffuse:    data.Diffuse,
				Specular:   data.Specular,
				Shininess:  data.Shininess,
				Ambient:    data.Ambient,
				EdgeColor:  data.EdgeColor,
				EdgeSize:   data.EdgeWeight,
				Texture:    data.Texture,
				Sphere:     data.Sphere,
				Toon:       data.Toon,
			})
		}
		entries = append(entries, e)
	}
	return entries
}

// uvMorphs collects UV offsets recorded from UV_ vertex groups. Legacy
// morphs that store their offsets directly are exported empty.
func (f *morphFlattener) uvMorphs(defs []*scene.Morph) []*morphEntry {
	var entries []*morphEntry
	byName := make(map[string]*morphEntry)
	scales := make(map[string]float32)
	for _, def := range defs {
		e := newMorphEntry(scene.MorphUV, pmx.MorphUV+pmx.MorphKind(def.UVIndex), def)
		entries = append(entries, e)
		if def.UVDataType == scene.UVDataLegacy {
			f.diags.add(compMorphs, CodeUVMorphLegacy, def.Name, "offsets are not stored in vertex groups")
			continue
		}
		byName[def.Name] = e
		scales[def.Name] = def.VertexGroupScale
	}
	if len(byName) == 0 {
		return entries
	}

	incomplete := make(map[string]bool)
	for _, v := range f.vertices {
		for _, name := range sortedKeys(v.src.uvOffsets) {
			e, ok := byName[name]
			if !ok {
				incomplete[name] = true
				continue
			}
			off, s := v.src.uvOffsets[name], scales[name]
			e.morph.UV = append(e.morph.UV, pmx.UVOffset{
				Vertex: v.index,
				Offset: pmath.Vec4{X: off.X * s, Y: -off.Y * s, Z: off.Z * s, W: -off.W * s},
			})
		}
	}
	if len(incomplete) > 0 {
		f.diags.add(compMorphs, CodeUVMorphIncomplete, strings.Join(sortedKeys(incomplete), ", "),
			"vertex groups reference undefined UV morphs")
	}
	return entries
}

func (f *morphFlattener) groupMorphs(defs []*scene.Morph) []*morphEntry {
	var entries []*morphEntry
	for _, def := range defs {
		e := newMorphEntry(scene.MorphGroup, pmx.MorphGroup, def)
		e.refs = def.Group
		entries = append(entries, e)
	}
	return entries
}

// orderMorphs puts morphs named by the facial frame first, in frame order,
// followed by the rest in discovery order. It returns the final position of
// every (kind, name).
func orderMorphs(entries []*morphEntry, facial []scene.MorphRef) map[scene.MorphRef]int {
	rank := make(map[scene.MorphRef]int)
	for _, ref := range facial {
		if _, ok := rank[ref]; !ok {
			rank[ref] = len(rank)
		}
	}
	for _, e := range entries {
		if _, ok := rank[e.key()]; !ok {
			rank[e.key()] = len(rank)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return rank[entries[i].key()] < rank[entries[j].key()] })

	index := make(map[scene.MorphRef]int, len(entries))
	for i, e := range entries {
		if _, ok := index[e.key()]; !ok {
			index[e.key()] = i
		}
	}
	return index
}

// resolveGroups turns group morph references into indices of the final
// morph table. Unknown references are dropped.
func (f *morphFlattener) resolveGroups(entries []*morphEntry, index map[scene.MorphRef]int) {
	for _, e := range entries {
		for _, ref := range e.refs {
			i, ok := index[scene.MorphRef{Kind: ref.Kind, Name: ref.Name}]
			if !ok {
				f.diags.add(compMorphs, CodeGroupMorphUnresolved, e.morph.Name, "%s %q was not found", ref.Kind, ref.Name)
				continue
			}
			e.morph.Group = append(e.morph.Group, pmx.GroupOffset{Morph: i, Factor: ref.Factor})
		}
		e.refs = nil
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
