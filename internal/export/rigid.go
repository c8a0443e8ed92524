package export

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Faultbox/pmxport/internal/scene"
	pmath "github.com/Faultbox/pmxport/pkg/math"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

// ErrUnsupportedShape is returned for rigid bodies whose shape has no PMX
// equivalent.
var ErrUnsupportedShape = errors.New("unsupported rigid body shape")

// rigidTransform decomposes a world matrix into the PMX location and YXZ
// Euler rotation plus the mean scale. NaN parts fall back to identity.
func rigidTransform(world pmath.Mat4, scale float32, name string, diags *diagnostics) (pmath.Vec3, pmath.Vec3, float32) {
	t, r, s := world.Decompose()
	if t.HasNaN() {
		diags.add(compRigid, CodeRigidNaNTransform, name, "invalid position, using origin")
		t = pmath.Vec3{}
	}
	if r.HasNaN() {
		diags.add(compRigid, CodeRigidNaNTransform, name, "invalid rotation, using identity")
		r = pmath.QuatIdentity()
	}
	if s.HasNaN() {
		diags.add(compRigid, CodeRigidNaNTransform, name, "invalid scale, using 1")
		s = pmath.Vec3{X: 1, Y: 1, Z: 1}
	}
	euler := r.Mat3().EulerYXZ()
	return t.XZY().Scale(scale), euler.XZY().Scale(-1), (s.X + s.Y + s.Z) / 3
}

func sortedRigids(in []*scene.RigidBody) []*scene.RigidBody {
	out := append([]*scene.RigidBody(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedJoints(in []*scene.Joint) []*scene.Joint {
	out := append([]*scene.Joint(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// buildRigids converts rigid bodies sorted by name and returns the index
// of each exported body by object name.
func buildRigids(bodies []*scene.RigidBody, bones *boneTable, scale float32, diags *diagnostics) ([]pmx.Rigid, map[string]int, error) {
	var out []pmx.Rigid
	index := make(map[string]int)
	for _, rb := range sortedRigids(bodies) {
		loc, rot, s := rigidTransform(rb.World, scale, rb.Name, diags)
		if rb.Physics == nil {
			diags.add(compRigid, CodeRigidSettingsMissing, rb.Name, "skipped")
			continue
		}
		p := pmx.Rigid{
			Name:           nameOr(rb.NameJ, rb.Name),
			NameE:          rb.NameE,
			Bone:           bones.indexOf(rb.Bone),
			Group:          uint8(rb.CollisionGroup),
			Location:       loc,
			Rotation:       rot,
			Mass:           rb.Physics.Mass,
			LinearDamping:  rb.Physics.LinearDamping,
			AngularDamping: rb.Physics.AngularDamping,
			Restitution:    rb.Physics.Restitution,
			Friction:       rb.Physics.Friction,
			Mode:           uint8(rb.Mode),
		}
		size := rb.Size.Scale(s)
		switch rb.Shape {
		case "SPHERE":
			p.Shape = pmx.ShapeSphere
			p.Size = size.Scale(scale)
		case "BOX":
			p.Shape = pmx.ShapeBox
			p.Size = size.XZY().Scale(scale)
		case "CAPSULE":
			p.Shape = pmx.ShapeCapsule
			p.Size = size.Scale(scale)
		default:
			return nil, nil, fmt.Errorf("%w: %s %q", ErrUnsupportedShape, rb.Name, rb.Shape)
		}
		for i, collide := range rb.CollisionMask {
			if !collide {
				p.Mask |= 1 << i
			}
		}
		index[rb.Name] = len(out)
		out = append(out, p)
	}
	return out, index, nil
}

// buildJoints converts joints sorted by name. Rigid references that were
// not exported become -1.
func buildJoints(joints []*scene.Joint, rigids map[string]int, scale float32, diags *diagnostics) []pmx.Joint {
	ref := func(name string) int {
		if i, ok := rigids[name]; ok {
			return i
		}
		return -1
	}

	var out []pmx.Joint
	for _, j := range sortedJoints(joints) {
		t, r, s := j.World.Decompose()
		if j.Limits == nil {
			diags.add(compRigid, CodeJointSettingsMissing, j.Name, "skipped")
			continue
		}
		lim := j.Limits
		ls := scale * (s.X + s.Y + s.Z) / 3
		out = append(out, pmx.Joint{
			Name:        nameOr(j.NameJ, j.Name),
			NameE:       j.NameE,
			RigidA:      ref(lim.ObjectA),
			RigidB:      ref(lim.ObjectB),
			Location:    t.XZY().Scale(scale),
			Rotation:    r.Mat3().EulerYXZ().XZY().Scale(-1),
			LocationMin: lim.LinLower.XZY().Scale(ls),
			LocationMax: lim.LinUpper.XZY().Scale(ls),
			RotationMin: lim.AngUpper.XZY().Scale(-1),
			RotationMax: lim.AngLower.XZY().Scale(-1),
			SpringLoc:   j.SpringLinear.XZY(),
			SpringRot:   j.SpringAngular.XZY(),
		})
	}
	return out
}
