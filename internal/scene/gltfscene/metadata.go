package gltfscene

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Faultbox/pmxport/internal/scene"
	pmath "github.com/Faultbox/pmxport/pkg/math"
)

const (
	ikConstraintName    = "IK"
	limitConstraintName = "Limit Rotation"
)

func vec3Ptr(a *[3]float32) *pmath.Vec3 {
	if a == nil {
		return nil
	}
	v := pmath.FromArray(*a)
	return &v
}

func vec4(a [4]float32) pmath.Vec4 {
	return pmath.Vec4{X: a[0], Y: a[1], Z: a[2], W: a[3]}
}

// limits expands a LimitInfo; axes with neither bound are unused and a
// missing bound on a used axis is zero.
func limits(l LimitInfo) (use [3]bool, lo, hi pmath.Vec3) {
	var min, max [3]float32
	for axis := 0; axis < 3; axis++ {
		if l.Min[axis] == nil && l.Max[axis] == nil {
			continue
		}
		use[axis] = true
		if l.Min[axis] != nil {
			min[axis] = *l.Min[axis]
		}
		if l.Max[axis] != nil {
			max[axis] = *l.Max[axis]
		}
	}
	return use, pmath.FromArray(min), pmath.FromArray(max)
}

func limitConstraint(name string, l LimitInfo) scene.Constraint {
	c := scene.Constraint{Name: name, Type: scene.ConstraintLimitRotation}
	c.UseLimit, c.Min, c.Max = limits(l)
	return c
}

func applyBone(b *scene.Bone, info BoneInfo) {
	b.NameJ = info.NameJ
	b.NameE = info.NameE
	if info.BoneID != nil {
		b.BoneID = *info.BoneID
	}
	b.Hidden = info.Hidden
	b.IsTip = info.Tip
	b.UseConnect = info.Connected
	b.LockLocation = [3]bool{info.LockLocation, info.LockLocation, info.LockLocation}
	b.LockRotation = [3]bool{info.LockRotation, info.LockRotation, info.LockRotation}
	b.TransformOrder = info.TransformOrder
	b.TransformAfterDynamics = info.AfterPhysics

	if info.AdditionalBone != "" {
		b.AdditionalTransformBone = info.AdditionalBone
		b.HasAdditionalRotation = info.AdditionalRotate
		b.HasAdditionalLocation = info.AdditionalMove
		b.AdditionalTransformInfluence = 1
		if info.AdditionalFactor != nil {
			b.AdditionalTransformInfluence = *info.AdditionalFactor
		}
	}

	switch {
	case info.TailBone != "":
		b.DisplayConnection = scene.ConnectBone
		b.DisplayConnectionBone = info.TailBone
	case info.TailOffset:
		b.DisplayConnection = scene.ConnectOffset
	}

	b.FixedAxis = vec3Ptr(info.FixedAxis)
	b.LocalAxisX = vec3Ptr(info.LocalAxisX)
	b.LocalAxisZ = vec3Ptr(info.LocalAxisZ)

	if ik := info.IK; ik != nil {
		useTail := true
		if ik.UseTail != nil {
			useTail = *ik.UseTail
		}
		b.Constraints = append(b.Constraints, scene.Constraint{
			Name:       ikConstraintName,
			Type:       scene.ConstraintIK,
			Mute:       ik.Mute,
			Subtarget:  ik.Control,
			UseTail:    useTail,
			ChainCount: ik.ChainCount,
			Iterations: ik.Iterations,
		})
		b.IKRotationConstraint = ik.Angle
	}
	b.LockIK = info.LockIK
	if info.IKLimit != nil {
		b.UseIKLimit, b.IKMin, b.IKMax = limits(*info.IKLimit)
	}
	for i, l := range info.IKLimitCustom {
		b.Constraints = append(b.Constraints, limitConstraint(fmt.Sprintf(scene.IKLimitCustomFmt, i), l))
	}
	if info.LimitRotation != nil {
		b.Constraints = append(b.Constraints, limitConstraint(limitConstraintName, *info.LimitRotation))
	}
	if info.IKTargetOverride != "" {
		b.Constraints = append(b.Constraints, scene.Constraint{Name: scene.IKTargetOverride, Subtarget: info.IKTargetOverride})
	}
	if info.IKTargetCustomFor != "" {
		b.Constraints = append(b.Constraints, scene.Constraint{Name: scene.IKTargetCustom, Subtarget: info.IKTargetCustomFor})
	}
}

func applyMaterial(m *scene.Material, info MaterialInfo, dir string) {
	m.NameJ = info.NameJ
	m.NameE = info.NameE
	if info.Ambient != nil {
		m.Ambient = pmath.FromArray(*info.Ambient)
	}
	if info.Specular != nil {
		m.Specular = pmath.FromArray(*info.Specular)
	}
	if info.Shininess != nil {
		m.Shininess = *info.Shininess
	}
	if info.DropShadow != nil {
		m.DropShadow = *info.DropShadow
	}
	if info.SelfShadowMap != nil {
		m.SelfShadowMap = *info.SelfShadowMap
	}
	if info.SelfShadow != nil {
		m.SelfShadow = *info.SelfShadow
	}
	m.ToonEdge = info.ToonEdge
	if info.EdgeColor != nil {
		m.EdgeColor = vec4(*info.EdgeColor)
	}
	if info.EdgeWeight != nil {
		m.EdgeWeight = *info.EdgeWeight
	}
	m.SphereTexture = resolvePath(dir, info.SphereTexture)
	m.SphereMode = info.SphereMode
	if info.SharedToon != nil {
		m.SharedToon = true
		m.SharedToonIndex = *info.SharedToon
	}
	m.ToonTexture = resolvePath(dir, info.ToonTexture)
	m.Comment = info.Comment
}

func morphBase(kind scene.MorphKind, info MorphInfo) *scene.Morph {
	return &scene.Morph{Kind: kind, Name: info.Name, NameE: info.NameE, Category: info.Category}
}

func parseKind(s string) (scene.MorphKind, error) {
	if s == "" {
		return scene.MorphVertex, nil
	}
	k, ok := scene.ParseMorphKind(s)
	if !ok {
		return 0, errors.Errorf("unknown morph kind %q", s)
	}
	return k, nil
}

// metadata fills the model root, morph definitions, display frames and
// physics from the sidecar.
func (c *converter) metadata(out *scene.Static, name string) error {
	side := c.side
	out.RootInfo = &scene.Root{
		ObjectName:   name,
		Name:         side.Model.Name,
		NameE:        side.Model.NameE,
		Comment:      side.Model.Comment,
		CommentE:     side.Model.CommentE,
		IKLoopFactor: side.Model.IKLoopFactor,
	}

	for _, info := range side.VertexMorphs {
		out.MorphDefs = append(out.MorphDefs, morphBase(scene.MorphVertex, info))
	}
	for _, info := range side.BoneMorphs {
		m := morphBase(scene.MorphBone, info.MorphInfo)
		for _, b := range info.Bones {
			rot := pmath.QuatIdentity()
			if r := b.Rotation; r != nil {
				rot = pmath.Quat{W: r[0], X: r[1], Y: r[2], Z: r[3]}
			}
			m.Bones = append(m.Bones, scene.BoneMorphData{Bone: b.Bone, Location: pmath.FromArray(b.Location), Rotation: rot})
		}
		out.MorphDefs = append(out.MorphDefs, m)
	}
	for _, info := range side.MaterialMorphs {
		m := morphBase(scene.MorphMaterial, info.MorphInfo)
		for _, o := range info.Offsets {
			typ := o.OffsetType
			if typ == "" {
				typ = "MULT"
			}
			m.Materials = append(m.Materials, scene.MaterialMorphData{
				Material:   o.Material,
				OffsetType: typ,
				Diffuse:    vec4(o.Diffuse),
				Specular:   pmath.FromArray(o.Specular),
				Shininess:  o.Shininess,
				Ambient:    pmath.FromArray(o.Ambient),
				EdgeColor:  vec4(o.EdgeColor),
				EdgeWeight: o.EdgeWeight,
				Texture:    vec4(o.Texture),
				Sphere:     vec4(o.Sphere),
				Toon:       vec4(o.Toon),
			})
		}
		out.MorphDefs = append(out.MorphDefs, m)
	}
	for _, info := range side.UVMorphs {
		m := morphBase(scene.MorphUV, info.MorphInfo)
		m.UVIndex = info.UVIndex
		m.UVDataType = info.DataType
		if m.UVDataType == "" {
			m.UVDataType = scene.UVDataVertexGroup
		}
		m.VertexGroupScale = 1
		if info.Scale != nil {
			m.VertexGroupScale = *info.Scale
		}
		out.MorphDefs = append(out.MorphDefs, m)
	}
	for _, info := range side.GroupMorphs {
		m := morphBase(scene.MorphGroup, info.MorphInfo)
		for _, ref := range info.Morphs {
			kind, err := parseKind(ref.Kind)
			if err != nil {
				return errors.Wrapf(err, "group morph %q", info.Name)
			}
			m.Group = append(m.Group, scene.GroupMorphData{Kind: kind, Name: ref.Name, Factor: ref.Factor})
		}
		out.MorphDefs = append(out.MorphDefs, m)
	}

	for _, info := range side.DisplayFrames {
		f := &scene.DisplayFrame{Name: info.Name, NameE: info.NameE, Special: info.Special}
		for _, it := range info.Items {
			if it.Morph == "" {
				f.Items = append(f.Items, scene.DisplayItem{Name: it.Bone})
				continue
			}
			kind, err := parseKind(it.Kind)
			if err != nil {
				return errors.Wrapf(err, "display frame %q", info.Name)
			}
			f.Items = append(f.Items, scene.DisplayItem{Morph: true, MorphKind: kind, Name: it.Morph})
		}
		out.Frames = append(out.Frames, f)
	}

	for _, info := range side.RigidBodies {
		r, err := rigidBody(info)
		if err != nil {
			return err
		}
		out.Rigids = append(out.Rigids, r)
	}
	for _, info := range side.Joints {
		out.JointList = append(out.JointList, joint(info))
	}
	return nil
}

// placement builds a world matrix from a glTF-space location and XYZ Euler
// rotation.
func placement(loc, rot [3]float32) pmath.Mat4 {
	r := pmath.RotateZ(rot[2]).Mul(pmath.RotateY(rot[1])).Mul(pmath.RotateX(rot[0]))
	return yUpToZUp.Mul(pmath.Translate(loc[0], loc[1], loc[2])).Mul(r)
}

func rigidBody(info RigidBodyInfo) (*scene.RigidBody, error) {
	r := &scene.RigidBody{
		Name:           info.Name,
		NameJ:          info.NameJ,
		NameE:          info.NameE,
		World:          placement(info.Location, info.Rotation),
		Shape:          info.Shape,
		Size:           pmath.FromArray(info.Size),
		Mode:           info.Mode,
		Bone:           info.Bone,
		CollisionGroup: info.CollisionGroup,
	}
	for i := range r.CollisionMask {
		r.CollisionMask[i] = true
	}
	for _, g := range info.NoCollide {
		if g < 0 || g >= len(r.CollisionMask) {
			return nil, errors.Errorf("rigid body %q: collision group %d out of range", info.Name, g)
		}
		r.CollisionMask[g] = false
	}
	if p := info.Physics; p != nil {
		r.Physics = &scene.RigidPhysics{
			Mass:           p.Mass,
			Friction:       p.Friction,
			Restitution:    p.Restitution,
			LinearDamping:  p.LinearDamping,
			AngularDamping: p.AngularDamping,
		}
	}
	return r, nil
}

func joint(info JointInfo) *scene.Joint {
	j := &scene.Joint{
		Name:          info.Name,
		NameJ:         info.NameJ,
		NameE:         info.NameE,
		World:         placement(info.Location, info.Rotation),
		SpringLinear:  pmath.FromArray(info.SpringLinear),
		SpringAngular: pmath.FromArray(info.SpringAngular),
	}
	if info.RigidA == "" && info.RigidB == "" && info.Limits == nil {
		return j
	}
	j.Limits = &scene.JointLimits{ObjectA: info.RigidA, ObjectB: info.RigidB}
	if l := info.Limits; l != nil {
		j.Limits.LinLower = pmath.FromArray(l.LinLower)
		j.Limits.LinUpper = pmath.FromArray(l.LinUpper)
		j.Limits.AngLower = pmath.FromArray(l.AngLower)
		j.Limits.AngUpper = pmath.FromArray(l.AngUpper)
	}
	return j
}
