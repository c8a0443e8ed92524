package export

import (
	"context"
	"testing"

	"github.com/Faultbox/pmxport/internal/scene"
	pmath "github.com/Faultbox/pmxport/pkg/math"
)

var up = pmath.Vec3{Z: 1}

// makeQuad returns a unit quad of two triangles sharing the 0-2 diagonal,
// with one UV per corner matching the vertex position.
func makeQuad(name string) *scene.Mesh {
	co := []pmath.Vec3{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}
	m := &scene.Mesh{
		Name:  name,
		World: pmath.Identity(),
		Faces: []scene.Face{
			{Vertices: [3]int{0, 1, 2}, Normals: [3]pmath.Vec3{up, up, up}},
			{Vertices: [3]int{0, 2, 3}, Normals: [3]pmath.Vec3{up, up, up}},
		},
	}
	for _, c := range co {
		m.Vertices = append(m.Vertices, scene.Vertex{Co: c})
	}
	uv := scene.UVLayer{Name: "UVMap"}
	for _, f := range m.Faces {
		for _, vi := range f.Vertices {
			uv.Data = append(uv.Data, pmath.Vec2{X: co[vi].X, Y: co[vi].Y})
		}
	}
	m.UVLayers = []scene.UVLayer{uv}
	return m
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Scale = 1
	opts.ProbeTextures = false
	return opts
}

func mustBuild(t *testing.T, opts Options, q scene.Query) *Result {
	t.Helper()
	res, err := NewAssembler(opts).Build(context.Background(), q)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return res
}

func bone(name, parent string, id int, head, tail pmath.Vec3) *scene.Bone {
	return &scene.Bone{
		Name:                         name,
		Parent:                       parent,
		BoneID:                       id,
		Head:                         head,
		Tail:                         tail,
		Matrix:                       pmath.Identity(),
		RestMatrix:                   pmath.Identity(),
		Controllable:                 true,
		AdditionalTransformInfluence: 1,
		DisplayConnection:            scene.ConnectBone,
	}
}

func near(a, b pmath.Vec3) bool {
	return a.Distance(b) < 1e-4
}

func nearQuat(a, b pmath.Quat) bool {
	return pmath.Vec4{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z, W: a.W - b.W}.Length() < 1e-4
}

func countCode(ds []Diagnostic, code string) int {
	return CountByCode(ds)[code]
}
