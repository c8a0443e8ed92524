package export

import (
	"sort"

	pmath "github.com/Faultbox/pmxport/pkg/math"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

// materialGroup is every face list that renders with one material, in
// mesh order then slot order.
type materialGroup struct {
	name  string
	faces [][]*face
}

// groupByMaterial merges the meshes' slots by material name, keeping the
// order in which names first appear.
func groupByMaterial(meshes []*loadedMesh) []*materialGroup {
	var groups []*materialGroup
	byName := make(map[string]*materialGroup)
	for _, m := range meshes {
		for _, slot := range m.slots {
			name := m.materialNames[slot]
			g, ok := byName[name]
			if !ok {
				g = &materialGroup{name: name}
				byName[name] = g
				groups = append(groups, g)
			}
			g.faces = append(g.faces, m.materialFaces[slot])
		}
	}
	return groups
}

// emitGroup appends the vertices and faces of one material group to the
// model and returns the number of faces written. Vertices get their index
// the first time a face uses them.
func emitGroup(model *pmx.Model, emitted *[]*vertex, g *materialGroup) int {
	count := 0
	for _, faces := range g.faces {
		for _, f := range faces {
			for _, v := range f.corners {
				if v.index >= 0 {
					continue
				}
				v.index = len(model.Vertices)
				model.Vertices = append(model.Vertices, toPMXVertex(v))
				*emitted = append(*emitted, v)
			}
		}
		for _, f := range faces {
			model.Faces = append(model.Faces, [3]int{f.corners[0].index, f.corners[1].index, f.corners[2].index})
		}
		count += len(faces)
	}
	return count
}

func toPMXVertex(v *vertex) pmx.Vertex {
	pv := pmx.Vertex{
		Position:  v.src.co,
		Normal:    v.normal,
		UV:        v.uv.FlipV(),
		Weight:    EncodeWeights(v.src.groups, v.src.sdef),
		EdgeScale: v.src.edgeScale,
	}

	var slots [pmx.MaxAddUV]*pmath.Vec4
	last := -1
	for i, a := range v.aux {
		if a != nil {
			uv := pmath.Vec4FromPairs(a.uv.FlipV(), a.zw.FlipV())
			slots[i] = &uv
			last = i
		}
	}
	if v.color != nil {
		slots[colorSlot] = v.color
		last = max(last, colorSlot)
	}
	for i := 0; i <= last; i++ {
		if slots[i] != nil {
			pv.AddUVs = append(pv.AddUVs, *slots[i])
		} else {
			pv.AddUVs = append(pv.AddUVs, pmath.Vec4{})
		}
	}
	return pv
}

// sortVertices reorders the emitted vertices by their sort key and renumbers
// faces. Copies of one source vertex keep their emission order.
func sortVertices(model *pmx.Model, emitted []*vertex) {
	order := make([]int, len(emitted))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return emitted[order[a]].src.order.less(emitted[order[b]].src.order)
	})

	remap := make([]int, len(order))
	vertices := make([]pmx.Vertex, len(order))
	for newIdx, oldIdx := range order {
		remap[oldIdx] = newIdx
		vertices[newIdx] = model.Vertices[oldIdx]
	}
	model.Vertices = vertices
	for _, v := range emitted {
		v.index = remap[v.index]
	}
	for i, f := range model.Faces {
		model.Faces[i] = [3]int{remap[f[0]], remap[f[1]], remap[f[2]]}
	}
}
