package export

import (
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/pmxport/internal/scene"
	pmath "github.com/Faultbox/pmxport/pkg/math"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

// Placeholder bone written when the model has no exportable bones.
const (
	placeholderBoneName  = "全ての親"
	placeholderBoneNameE = "Root"
)

// boneTable is the exported bone arena. names holds the scene name of each
// entry and index maps scene names back to table positions.
type boneTable struct {
	bones []pmx.Bone
	names []string
	index map[string]int
}

// indexOf returns the table position of a scene bone or -1.
func (t *boneTable) indexOf(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// sortedBones orders bones by BoneID with unset ids last; ties keep name
// order.
func sortedBones(bones []*scene.Bone) []*scene.Bone {
	out := append([]*scene.Bone(nil), bones...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.BoneID >= 0 && b.BoneID >= 0 && a.BoneID != b.BoneID:
			return a.BoneID < b.BoneID
		case a.BoneID >= 0 && b.BoneID < 0:
			return true
		case a.BoneID < 0 && b.BoneID >= 0:
			return false
		}
		return a.Name < b.Name
	})
	return out
}

// buildBones flattens the armature in two passes: the first creates every
// record with its location and flags, the second resolves references by
// name once every bone has an index.
func buildBones(arm *scene.Armature, scale float32, log *zap.Logger) *boneTable {
	t := &boneTable{index: make(map[string]int)}
	world := pmath.Identity()
	var bones []*scene.Bone
	if arm != nil {
		world = arm.World
		bones = sortedBones(arm.Bones)
	}
	pm := pmxMatrix(world, scale)

	for _, b := range bones {
		if b.Shadow {
			continue
		}
		pb := pmx.NewBone(nameOr(b.NameJ, b.Name))
		pb.NameE = b.NameE
		pb.Location = pm.TransformVec3(b.Head)
		pb.Visible = !b.Hidden
		pb.Controllable = b.Controllable
		pb.Movable = !allTrue(b.LockLocation)
		pb.Rotatable = !allTrue(b.LockRotation)
		pb.TransformOrder = b.TransformOrder
		pb.AfterPhysics = b.TransformAfterDynamics
		pb.AdditionalRotate = b.HasAdditionalRotation
		pb.AdditionalLocation = b.HasAdditionalLocation
		pb.AdditionalInfluence = b.AdditionalTransformInfluence

		if parent := arm.Bone(b.Parent); parent != nil && parent.IsTip &&
			(b.UseConnect || (!pb.Movable && b.Head.Distance(parent.Tail) == 0)) {
			log.Debug("locking bone to tip parent", zap.String("bone", b.Name), zap.String("parent", parent.Name))
			if pi, ok := t.index[parent.Name]; ok {
				pb.Location = t.bones[pi].Location
			} else {
				pb.Location = pm.TransformVec3(parent.Head)
			}
		}

		switch b.DisplayConnection {
		case scene.ConnectOffset:
			pb.TailIsBone = false
			if !b.IsTip {
				pb.TailOffset = pm.TransformVec3(b.Tail).Sub(pb.Location)
			}
		default:
			pb.TailIsBone = true
		}

		pose := poseMatrices{pose: b.Matrix, rest: b.RestMatrix}
		if b.FixedAxis != nil {
			axis := boneAxis(pm, pose, *b.FixedAxis)
			pb.FixedAxis = &axis
		}
		if b.LocalAxisX != nil && b.LocalAxisZ != nil {
			x := boneAxis(pm, pose, *b.LocalAxisX)
			z := boneAxis(pm, pose, *b.LocalAxisZ)
			pb.LocalAxisX, pb.LocalAxisZ = &x, &z
		}

		t.index[b.Name] = len(t.bones)
		t.bones = append(t.bones, pb)
		t.names = append(t.names, b.Name)
	}

	for i, name := range t.names {
		b := arm.Bone(name)
		pb := &t.bones[i]
		pb.Parent = t.indexOf(b.Parent)
		if b.DisplayConnection == scene.ConnectBone && !b.IsTip {
			pb.TailBone = t.indexOf(b.DisplayConnectionBone)
		}
		pb.AdditionalParent = t.indexOf(b.AdditionalTransformBone)
	}

	if len(t.bones) == 0 {
		pb := pmx.NewBone(placeholderBoneName)
		pb.NameE = placeholderBoneNameE
		pb.Location = pm.TransformVec3(pmath.Vec3{})
		pb.TailOffset = pm.TransformVec3(pmath.Vec3{Z: 1}).Sub(pb.Location)
		t.bones = append(t.bones, pb)
		log.Debug("no bones to export, wrote placeholder root")
	}
	return t
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func allTrue(b [3]bool) bool {
	return b[0] && b[1] && b[2]
}
