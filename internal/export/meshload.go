package export

import (
	"regexp"
	"sort"
	"strings"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/pmxport/internal/scene"
	pmath "github.com/Faultbox/pmxport/pkg/math"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

// Vertex groups named UV_<morph>[+-][XYZW] carry UV morph offsets.
var uvMorphGroup = regexp.MustCompile(`^UV_.+[+-][XYZW]$`)

const (
	colorSlot       = 1
	shapeKeyEpsilon = 0.001
)

// face is a consolidated triangle. src indexes the scene face for UV lookup.
type face struct {
	corners [3]*vertex
	src     int
}

// loadedMesh is a mesh after consolidation, grouped by material slot.
type loadedMesh struct {
	name          string
	slots         []int // material slots in ascending order
	materialFaces map[int][]*face
	materialNames map[int]string
	shapeKeys     []string
	addUV         int
	sourceVerts   int
	sourceFaces   int
}

// sortKey orders vertices for the BLENDER and CUSTOM vertex sorts.
type sortKey struct {
	mesh   int
	weight float32 // mmd_vertex_order weight, CUSTOM only
	index  int
}

func (k sortKey) less(o sortKey) bool {
	if k.mesh != o.mesh {
		return k.mesh < o.mesh
	}
	if k.weight != o.weight {
		return k.weight < o.weight
	}
	return k.index < o.index
}

// meshLoader consolidates one scene mesh.
type meshLoader struct {
	opts    *Options
	boneMap map[string]int
	diags   *diagnostics
	log     *zap.Logger
}

func (l *meshLoader) load(m *scene.Mesh, meshID int) *loadedMesh {
	pm := pmxMatrix(m.World, l.opts.Scale)
	nm := normalMatrix(m.World, pm)

	positions := make([]pmath.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		positions[i] = pm.TransformVec3(v.Co)
	}

	sources := l.sources(m, positions, meshID)
	strategy := Average
	if l.opts.VertexSplitting {
		strategy = Split
	}
	cons := newConsolidator(strategy, sources)

	hasColorLayer := len(m.Colors) > 0
	colors := m.Colors
	if hasColorLayer && allWhite(colors) {
		l.log.Info("all vertex colors are white, exporting no color data", zap.String("mesh", m.Name))
		colors = nil
	}

	var primary []pmath.Vec2
	if len(m.UVLayers) > 0 {
		primary = m.UVLayers[0].Data
	}

	out := &loadedMesh{
		name:          m.Name,
		materialFaces: make(map[int][]*face),
		materialNames: make(map[int]string),
		sourceVerts:   len(m.Vertices),
		sourceFaces:   len(m.Faces),
	}

	var faces []*face
	for fi, f := range m.Faces {
		name, ok := slotMaterial(m.MaterialSlots, f.Material)
		if !ok {
			l.diags.add(compMeshes, CodeMaterialIndexOutOfRange, m.Name,
				"face %d uses material slot %d of %d", fi, f.Material, len(m.MaterialSlots))
			continue
		}

		var p [3]pmath.Vec3
		for k := 0; k < 3; k++ {
			p[k] = positions[f.Vertices[k]]
		}
		area := p[1].Sub(p[0]).Cross(p[2].Sub(p[0])).Length() / 2

		nf := &face{src: fi}
		for k := 0; k < 3; k++ {
			uv := cornerUV(primary, 3*fi+k)
			normal := nm.MulVec3(f.Normals[k]).Normalize()
			var color *pmath.Vec4
			if colors != nil {
				color = colorOrNil(colors[3*fi+k])
			}
			angle := cornerAngle(p[k], p[(k+1)%3], p[(k+2)%3])
			nf.corners[k] = cons.resolve(f.Vertices[k], uv, normal, color, area, angle)
		}
		faces = append(faces, nf)

		if _, seen := out.materialFaces[f.Material]; !seen {
			out.slots = append(out.slots, f.Material)
			out.materialNames[f.Material] = name
		}
		out.materialFaces[f.Material] = append(out.materialFaces[f.Material], nf)
	}
	sort.Ints(out.slots)

	l.ripAuxLayers(m, cons, faces, hasColorLayer, out)
	l.applyShapeKeys(m, pm, sources, out)

	// The writer stores faces as given, so handedness is fixed here.
	if pm.IsNegative() {
		for _, f := range faces {
			f.corners[0], f.corners[2] = f.corners[2], f.corners[0]
		}
	}

	l.log.Debug("mesh loaded",
		zap.String("mesh", m.Name),
		zap.String("strategy", strategy.String()),
		zap.Int("faces", len(faces)),
		zap.Int("addUV", out.addUV),
	)
	return out
}

// sources builds the shared per-vertex data in PMX space.
func (l *meshLoader) sources(m *scene.Mesh, positions []pmath.Vec3, meshID int) []*source {
	groupBone := make(map[int]int)
	uvGroups := make(map[int]string)
	for gi, name := range m.VertexGroups {
		if bi, ok := l.boneMap[name]; ok {
			groupBone[gi] = bi
		}
		if uvMorphGroup.MatchString(name) {
			uvGroups[gi] = name
		}
	}
	edgeGroup := m.VertexGroup(scene.GroupEdgeScale)
	orderGroup := -1
	if l.opts.SortVertices == SortCustom {
		orderGroup = m.VertexGroup(scene.GroupVertexOrder)
	}

	sources := make([]*source, len(m.Vertices))
	for i, v := range m.Vertices {
		s := &source{
			id:        i,
			co:        positions[i],
			offsets:   make(map[string]pmath.Vec3),
			uvOffsets: make(map[string]pmath.Vec4),
			edgeScale: groupWeight(v.Groups, edgeGroup, 1),
			order:     sortKey{mesh: meshID, index: i},
		}
		if orderGroup >= 0 {
			s.order.weight = groupWeight(v.Groups, orderGroup, 2)
		}
		for _, g := range v.Groups {
			if bi, ok := groupBone[g.Group]; ok && g.Weight > 0 {
				s.groups = append(s.groups, Influence{Bone: bi, Weight: g.Weight})
			}
			if name, ok := uvGroups[g.Group]; ok && g.Weight > 0 {
				morph := name[3 : len(name)-2]
				axis := strings.IndexByte("XYZW", name[len(name)-1])
				w := g.Weight
				if name[len(name)-2] == '-' {
					w = -w
				}
				off := s.uvOffsets[morph]
				s.uvOffsets[morph] = off.Set(axis, off.Index(axis)+w)
			}
		}
		sources[i] = s
	}
	return sources
}

// ripAuxLayers layers the additional UV channels onto the consolidated
// vertices. Vertex colors, when present, own slot 1.
func (l *meshLoader) ripAuxLayers(m *scene.Mesh, cons *consolidator, faces []*face, hasColors bool, out *loadedMesh) {
	var layers []scene.UVLayer
	if len(m.UVLayers) > 1 {
		for _, layer := range m.UVLayers[1:] {
			if strings.HasPrefix(layer.Name, "_") {
				continue
			}
			if hasColors && layer.Name == "UV2" {
				continue
			}
			layers = append(layers, layer)
		}
	}

	limit := pmx.MaxAddUV
	needed := len(layers)
	if hasColors {
		limit--
		needed++
	}
	if needed > pmx.MaxAddUV {
		var dropped []string
		for _, layer := range layers[limit:] {
			dropped = append(dropped, layer.Name)
		}
		l.diags.add(compMeshes, CodeTooManyUVChannels, m.Name,
			"%d channels needed, dropped %s", needed, strings.Join(dropped, ", "))
		layers = layers[:limit]
	}

	out.addUV = len(layers)
	if hasColors {
		out.addUV = max(len(layers)+1, 2)
	}

	for n, layer := range layers {
		slot := n
		if hasColors && n >= colorSlot {
			slot = n + 1
		}
		var zw []pmath.Vec2
		for _, other := range m.UVLayers {
			if other.Name == "_"+layer.Name {
				zw = other.Data
				break
			}
		}
		rips := make(map[*vertex][]*vertex)
		for _, f := range faces {
			for k := 0; k < 3; k++ {
				v := f.corners[k]
				list, ok := rips[v]
				if !ok {
					list = []*vertex{v}
				}
				idx := 3*f.src + k
				f.corners[k], rips[v] = cons.rip(v, slot, cornerUVOr(layer.Data, idx, pmath.Vec2{}), cornerUVOr(zw, idx, pmath.Vec2{}), list)
			}
		}
	}
}

// applyShapeKeys records vertex morph offsets and SDEF data on the sources.
func (l *meshLoader) applyShapeKeys(m *scene.Mesh, pm pmath.Mat4, sources []*source, out *loadedMesh) {
	if len(m.ShapeKeys) < 2 {
		return
	}
	var keys []scene.ShapeKey
	for _, kb := range m.ShapeKeys[1:] {
		switch {
		case strings.HasPrefix(kb.Name, scene.ShapeKeyBindPfx), kb.Name == scene.ShapeKeySDEF:
			continue
		case kb.Name == scene.ShapeKeySDEFC:
			keys = append([]scene.ShapeKey{kb}, keys...)
		default:
			keys = append(keys, kb)
		}
	}

	sdefCount := 0
	for _, kb := range keys {
		if len(kb.Positions) != len(sources) {
			l.diags.add(compMeshes, CodeShapeKeyVertexMismatch, m.Name+"/"+kb.Name,
				"%d positions for %d vertices", len(kb.Positions), len(sources))
			continue
		}
		switch kb.Name {
		case scene.ShapeKeySDEFC:
			for i, p := range kb.Positions {
				s := sources[i]
				if len(s.groups) != 2 {
					continue
				}
				c := pm.TransformVec3(p)
				if c.Distance(s.co) < shapeKeyEpsilon {
					continue
				}
				s.sdef = &SDEF{C: c, R0: s.co, R1: s.co}
				sdefCount++
			}
			l.log.Debug("restored SDEF vertices", zap.String("mesh", m.Name), zap.Int("count", sdefCount))
		case scene.ShapeKeySDEFR0, scene.ShapeKeySDEFR1:
			if sdefCount == 0 {
				continue
			}
			for i, p := range kb.Positions {
				s := sources[i]
				if s.sdef == nil {
					continue
				}
				if kb.Name == scene.ShapeKeySDEFR0 {
					s.sdef.R0 = pm.TransformVec3(p)
				} else {
					s.sdef.R1 = pm.TransformVec3(p)
				}
			}
		default:
			out.shapeKeys = append(out.shapeKeys, kb.Name)
			for i, p := range kb.Positions {
				s := sources[i]
				off := pm.TransformVec3(p).Sub(s.co)
				if off.Length() < shapeKeyEpsilon {
					continue
				}
				s.offsets[kb.Name] = off
			}
		}
	}
}

// slotMaterial maps a face's slot to a material name. A mesh without slots
// uses the default material for slot 0.
func slotMaterial(slots []string, index int) (string, bool) {
	if len(slots) == 0 && index == 0 {
		return defaultMaterialKey, true
	}
	if index < 0 || index >= len(slots) {
		return "", false
	}
	return slots[index], true
}

func groupWeight(groups []scene.GroupWeight, group int, fallback float32) float32 {
	if group < 0 {
		return fallback
	}
	for _, g := range groups {
		if g.Group == group {
			return g.Weight
		}
	}
	return fallback
}

// cornerUV returns the primary UV of a corner; meshes without UVs map every
// corner to (0, 1).
func cornerUV(data []pmath.Vec2, i int) pmath.Vec2 {
	return cornerUVOr(data, i, pmath.Vec2{X: 0, Y: 1})
}

func cornerUVOr(data []pmath.Vec2, i int, fallback pmath.Vec2) pmath.Vec2 {
	if i < len(data) {
		return data[i]
	}
	return fallback
}

// cornerAngle is the interior angle at p between the edges to a and b.
func cornerAngle(p, a, b pmath.Vec3) float32 {
	u := a.Sub(p)
	v := b.Sub(p)
	lu, lv := u.Length(), v.Length()
	if lu == 0 || lv == 0 {
		return 0
	}
	c := u.Dot(v) / (lu * lv)
	return math32.Acos(math32.Max(-1, math32.Min(1, c)))
}

func allWhite(colors []pmath.Vec4) bool {
	white := pmath.Vec4{X: 1, Y: 1, Z: 1, W: 1}
	for _, c := range colors {
		if c != white {
			return false
		}
	}
	return true
}
