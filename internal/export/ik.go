package export

import (
	"fmt"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/pmxport/internal/scene"
	pmath "github.com/Faultbox/pmxport/pkg/math"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

// IKLimitPolicy decides which angle limits IK links carry.
type IKLimitPolicy string

const (
	IKLimitsExportAll          IKLimitPolicy = "EXPORT_ALL"
	IKLimitsIgnoreAll          IKLimitPolicy = "IGNORE_ALL"
	IKLimitsOverrideControlled IKLimitPolicy = "OVERRIDE_CONTROLLED"
)

// ikBuilder binds IK constraints of the armature to the bone table.
type ikBuilder struct {
	arm        *scene.Armature
	table      *boneTable
	policy     IKLimitPolicy
	loopFactor int
	diags      *diagnostics
	log        *zap.Logger
}

func (b *ikBuilder) build() {
	if b.arm == nil {
		return
	}
	customTargets := make(map[string]*scene.Bone)
	for _, bone := range b.arm.Bones {
		if bone.Shadow {
			continue
		}
		if c, ok := bone.Constraint(scene.IKTargetCustom); ok {
			customTargets[c.Subtarget] = bone
		}
	}

	for _, bone := range b.arm.Bones {
		if bone.Shadow {
			continue
		}
		for _, c := range bone.Constraints {
			if c.Type != scene.ConstraintIK || c.Mute {
				continue
			}
			b.bindConstraint(bone, c, customTargets)
		}
	}
}

func (b *ikBuilder) bindConstraint(bone *scene.Bone, c scene.Constraint, customTargets map[string]*scene.Bone) {
	control := b.controlBone(c)
	if control == nil {
		b.diags.add(compIK, CodeIKInvalid, bone.Name, "constraint %q has no control bone", c.Name)
		return
	}
	ikIndex := b.table.indexOf(control.Name)
	if ikIndex < 0 {
		b.diags.add(compIK, CodeIKInvalid, bone.Name, "control bone %q is not exported", control.Name)
		return
	}
	ik := &b.table.bones[ikIndex]
	if ik.IK {
		b.diags.add(compIK, CodeIKBoneReused, control.Name, "already drives another IK chain")
		return
	}

	chain := bone
	target := bone
	if c.UseTail {
		if custom, ok := customTargets[control.Name]; ok {
			target = custom
		} else {
			target = b.targetBone(bone)
		}
	} else {
		chain = b.arm.Bone(bone.Parent)
	}
	if target == nil || b.table.indexOf(target.Name) < 0 {
		b.diags.add(compIK, CodeIKTargetMissing, control.Name, "no target found from %q", bone.Name)
		return
	}

	ik.IK = true
	ik.IKLoop = max(int(float32(c.Iterations)/float32(b.loopFactor)), 1)
	if _, ok := customTargets[control.Name]; ok {
		ik.IKLimitAngle = control.IKRotationConstraint
	} else {
		ik.IKLimitAngle = bone.IKRotationConstraint
	}
	ik.IKTarget = b.table.indexOf(target.Name)
	ik.IKLinks = b.links(chain, c.ChainCount, control)
	b.log.Debug("IK bound",
		zap.String("bone", control.Name),
		zap.String("target", target.Name),
		zap.Int("links", len(ik.IKLinks)),
	)
}

// controlBone resolves the IK subtarget, following the IK_TARGET shadow
// proxy to its parent.
func (b *ikBuilder) controlBone(c scene.Constraint) *scene.Bone {
	if c.Target != "" && c.Target != b.arm.Name {
		return nil
	}
	bone := b.arm.Bone(c.Subtarget)
	if bone == nil {
		return nil
	}
	if bone.ShadowType == scene.ShadowTypeIKProxy {
		return b.arm.Bone(bone.Parent)
	}
	return bone
}

// targetBone picks the IK target among the children of bone: an explicit
// override first, then a connected child, then the child whose head is
// closest to bone's tail.
func (b *ikBuilder) targetBone(bone *scene.Bone) *scene.Bone {
	var children []*scene.Bone
	for _, c := range b.arm.Bones {
		if c.Parent == bone.Name && !c.Shadow {
			children = append(children, c)
		}
	}
	for _, c := range children {
		if o, ok := c.Constraint(scene.IKTargetOverride); ok && o.Subtarget == bone.Name {
			return c
		}
	}
	var best *scene.Bone
	var bestLen float32
	for _, c := range children {
		if c.UseConnect {
			return c
		}
		l := c.Head.Distance(bone.Tail)
		if best == nil || l < bestLen {
			best, bestLen = c, l
		}
	}
	return best
}

// links walks count ancestors starting at start.
func (b *ikBuilder) links(start *scene.Bone, count int, control *scene.Bone) []pmx.IKLink {
	var links []pmx.IKLink
	for bone := start; count > 0 && bone != nil; bone, count = b.arm.Bone(bone.Parent), count-1 {
		idx := b.table.indexOf(bone.Name)
		if idx < 0 {
			break
		}
		link := pmx.IKLink{Bone: idx}
		lo, hi, unused := b.limits(bone, control, len(links))
		if unused < 3 {
			link.HasLimit = true
			link.Min, link.Max = convertIKLimits(lo, hi, b.arm.World.Mul(bone.Matrix))
		}
		links = append(links, link)
	}
	return links
}

// limits collects the per-axis limits of one link and how many axes are
// left unconstrained. Sources, highest priority first: the custom limit
// constraint on the control bone (exclusive), an IK lock, the first active
// limit rotation constraint, the bone's own IK limits.
func (b *ikBuilder) limits(bone, control *scene.Bone, linkIndex int) (pmath.Vec3, pmath.Vec3, int) {
	lo := pmath.Vec3{X: -math32.Pi, Y: -math32.Pi, Z: -math32.Pi}
	hi := pmath.Vec3{X: math32.Pi, Y: math32.Pi, Z: math32.Pi}
	if b.policy == IKLimitsIgnoreAll {
		return lo, hi, 3
	}

	customName := fmt.Sprintf(scene.IKLimitCustomFmt, linkIndex)
	var custom, override *scene.Constraint
	for i := range control.Constraints {
		c := &control.Constraints[i]
		if c.Type == scene.ConstraintLimitRotation && c.Name == customName {
			custom = c
			break
		}
	}
	for i := range bone.Constraints {
		c := &bone.Constraints[i]
		if c.Type == scene.ConstraintLimitRotation && !c.Mute {
			override = c
			break
		}
	}

	unused := 0
	for axis := 0; axis < 3; axis++ {
		switch {
		case custom != nil:
			if custom.UseLimit[axis] {
				lo = setIndex(lo, axis, custom.Min.Index(axis))
				hi = setIndex(hi, axis, custom.Max.Index(axis))
			} else {
				unused++
			}
		case bone.LockIK[axis]:
			lo = setIndex(lo, axis, 0)
			hi = setIndex(hi, axis, 0)
		case override != nil && override.UseLimit[axis]:
			lo = setIndex(lo, axis, override.Min.Index(axis))
			hi = setIndex(hi, axis, override.Max.Index(axis))
		case override != nil && b.policy == IKLimitsOverrideControlled:
			unused++
		case bone.UseIKLimit[axis]:
			lo = setIndex(lo, axis, bone.IKMin.Index(axis))
			hi = setIndex(hi, axis, bone.IKMax.Index(axis))
		default:
			unused++
		}
	}
	return lo, hi, unused
}
