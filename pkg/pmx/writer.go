package pmx

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Faultbox/pmxport/pkg/encoding"
	"github.com/Faultbox/pmxport/pkg/math"
)

// Writer serializes models as little-endian PMX 2.0 with UTF-16LE text.
type Writer struct{}

// Serialize writes m to w with addUVCount additional UV channels per vertex.
func (Writer) Serialize(w io.Writer, m *Model, addUVCount int) error {
	return Write(w, m, addUVCount)
}

// Write writes m to w. Vertices with fewer additional UVs than addUVCount
// are padded with zeros.
func Write(w io.Writer, m *Model, addUVCount int) error {
	if addUVCount < 0 || addUVCount > MaxAddUV {
		return fmt.Errorf("%w: %d", ErrTooManyAddUVs, addUVCount)
	}
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw, h: headerFor(m, addUVCount)}
	e.model(m)
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

// encoder keeps the first error and turns every later write into a no-op.
type encoder struct {
	w   io.Writer
	h   Header
	err error
}

func (e *encoder) write(v any) {
	if e.err != nil {
		return
	}
	e.err = binary.Write(e.w, binary.LittleEndian, v)
}

func (e *encoder) u8(v uint8) { e.write(v) }
func (e *encoder) i32(v int) { e.write(int32(v)) }
func (e *encoder) f32(v float32) { e.write(v) }
func (e *encoder) vec2(v math.Vec2) { e.write([2]float32{v.X, v.Y}) }
func (e *encoder) vec3(v math.Vec3) { e.write([3]float32{v.X, v.Y, v.Z}) }
func (e *encoder) vec4(v math.Vec4) { e.write([4]float32{v.X, v.Y, v.Z, v.W}) }
func (e *encoder) quat(q math.Quat) { e.write([4]float32{q.X, q.Y, q.Z, q.W}) }
func (e *encoder) flag(b bool) { e.u8(boolByte(b)) }

func (e *encoder) text(s string) {
	data, err := encoding.UTF8ToUTF16LE(s)
	if err != nil {
		if e.err == nil {
			e.err = fmt.Errorf("encoding %q: %w", s, err)
		}
		return
	}
	e.i32(len(data))
	if len(data) > 0 {
		e.write(data)
	}
}

func (e *encoder) index(size uint8, v int) {
	switch size {
	case 1:
		e.write(int8(v))
	case 2:
		e.write(int16(v))
	default:
		e.write(int32(v))
	}
}

func (e *encoder) vertexIndex(v int) {
	switch e.h.VertexSize {
	case 1:
		e.write(uint8(v))
	case 2:
		e.write(uint16(v))
	default:
		e.write(int32(v))
	}
}

func (e *encoder) model(m *Model) {
	e.header()
	e.text(m.Name)
	e.text(m.NameE)
	e.text(m.Comment)
	e.text(m.CommentE)

	e.i32(len(m.Vertices))
	for i := range m.Vertices {
		e.vertex(&m.Vertices[i])
	}

	e.i32(len(m.Faces) * 3)
	for _, f := range m.Faces {
		e.vertexIndex(f[0])
		e.vertexIndex(f[1])
		e.vertexIndex(f[2])
	}

	e.i32(len(m.Textures))
	for _, t := range m.Textures {
		e.text(t)
	}

	e.i32(len(m.Materials))
	for i := range m.Materials {
		e.material(&m.Materials[i])
	}

	e.i32(len(m.Bones))
	for i := range m.Bones {
		e.bone(&m.Bones[i])
	}

	e.i32(len(m.Morphs))
	for i := range m.Morphs {
		e.morph(&m.Morphs[i])
	}

	e.i32(len(m.Displays))
	for i := range m.Displays {
		e.display(&m.Displays[i])
	}

	e.i32(len(m.Rigids))
	for i := range m.Rigids {
		e.rigid(&m.Rigids[i])
	}

	e.i32(len(m.Joints))
	for i := range m.Joints {
		e.joint(&m.Joints[i])
	}
}

func (e *encoder) header() {
	e.write([]byte(magic))
	e.f32(e.h.Version)
	e.u8(8)
	e.write([8]uint8{
		e.h.Encoding,
		uint8(e.h.AddUVCount),
		e.h.VertexSize,
		e.h.TextureSize,
		e.h.MaterialSize,
		e.h.BoneSize,
		e.h.MorphSize,
		e.h.RigidSize,
	})
}

func (e *encoder) vertex(v *Vertex) {
	e.vec3(v.Position)
	e.vec3(v.Normal)
	e.vec2(v.UV)
	for i := 0; i < e.h.AddUVCount; i++ {
		var uv math.Vec4
		if i < len(v.AddUVs) {
			uv = v.AddUVs[i]
		}
		e.vec4(uv)
	}

	w := &v.Weight
	e.u8(uint8(w.Type))
	switch w.Type {
	case BDEF1:
		e.index(e.h.BoneSize, w.Bones[0])
	case BDEF2:
		e.index(e.h.BoneSize, w.Bones[0])
		e.index(e.h.BoneSize, w.Bones[1])
		e.f32(w.Weights[0])
	case BDEF4:
		for i := 0; i < 4; i++ {
			e.index(e.h.BoneSize, w.Bones[i])
		}
		for i := 0; i < 4; i++ {
			e.f32(w.Weights[i])
		}
	case SDEF:
		e.index(e.h.BoneSize, w.Bones[0])
		e.index(e.h.BoneSize, w.Bones[1])
		e.f32(w.Weights[0])
		e.vec3(w.C)
		e.vec3(w.R0)
		e.vec3(w.R1)
	default:
		if e.err == nil {
			e.err = fmt.Errorf("%w: %d", ErrUnknownWeightType, w.Type)
		}
	}
	e.f32(v.EdgeScale)
}

func (e *encoder) material(m *Material) {
	e.text(m.Name)
	e.text(m.NameE)
	e.vec4(m.Diffuse)
	e.vec3(m.Specular)
	e.f32(m.Shininess)
	e.vec3(m.Ambient)
	e.u8(m.Flags)
	e.vec4(m.EdgeColor)
	e.f32(m.EdgeSize)
	e.index(e.h.TextureSize, m.Texture)
	e.index(e.h.TextureSize, m.SphereTexture)
	e.u8(m.SphereMode)
	e.flag(m.SharedToon)
	if m.SharedToon {
		e.u8(uint8(m.ToonTexture))
	} else {
		e.index(e.h.TextureSize, m.ToonTexture)
	}
	e.text(m.Comment)
	e.i32(m.VertexCount)
}

func (e *encoder) bone(b *Bone) {
	e.text(b.Name)
	e.text(b.NameE)
	e.vec3(b.Location)
	e.index(e.h.BoneSize, b.Parent)
	e.i32(b.TransformOrder)

	flags := b.Flags()
	e.write(flags)
	if flags&BoneTailIsBone != 0 {
		e.index(e.h.BoneSize, b.TailBone)
	} else {
		e.vec3(b.TailOffset)
	}
	if flags&(BoneAdditionalRotate|BoneAdditionalLocation) != 0 {
		e.index(e.h.BoneSize, b.AdditionalParent)
		e.f32(b.AdditionalInfluence)
	}
	if flags&BoneFixedAxis != 0 {
		e.vec3(*b.FixedAxis)
	}
	if flags&BoneLocalAxes != 0 {
		e.vec3(*b.LocalAxisX)
		e.vec3(*b.LocalAxisZ)
	}
	if flags&BoneIK != 0 {
		e.index(e.h.BoneSize, b.IKTarget)
		e.i32(b.IKLoop)
		e.f32(b.IKLimitAngle)
		e.i32(len(b.IKLinks))
		for _, l := range b.IKLinks {
			e.index(e.h.BoneSize, l.Bone)
			e.flag(l.HasLimit)
			if l.HasLimit {
				e.vec3(l.Min)
				e.vec3(l.Max)
			}
		}
	}
}

func (e *encoder) morph(m *Morph) {
	e.text(m.Name)
	e.text(m.NameE)
	e.u8(m.Category)
	e.u8(uint8(m.Kind))
	e.i32(m.OffsetCount())
	for _, o := range m.Group {
		e.index(e.h.MorphSize, o.Morph)
		e.f32(o.Factor)
	}
	for _, o := range m.Vertex {
		e.vertexIndex(o.Vertex)
		e.vec3(o.Offset)
	}
	for _, o := range m.Bone {
		e.index(e.h.BoneSize, o.Bone)
		e.vec3(o.Location)
		e.quat(o.Rotation)
	}
	for _, o := range m.UV {
		e.vertexIndex(o.Vertex)
		e.vec4(o.Offset)
	}
	for _, o := range m.Material {
		e.index(e.h.MaterialSize, o.Material)
		e.u8(o.OffsetType)
		e.vec4(o.Diffuse)
		e.vec3(o.Specular)
		e.f32(o.Shininess)
		e.vec3(o.Ambient)
		e.vec4(o.EdgeColor)
		e.f32(o.EdgeSize)
		e.vec4(o.Texture)
		e.vec4(o.Sphere)
		e.vec4(o.Toon)
	}
}

func (e *encoder) display(d *Display) {
	e.text(d.Name)
	e.text(d.NameE)
	e.flag(d.Special)
	e.i32(len(d.Items))
	for _, it := range d.Items {
		e.flag(it.IsMorph)
		if it.IsMorph {
			e.index(e.h.MorphSize, it.Index)
		} else {
			e.index(e.h.BoneSize, it.Index)
		}
	}
}

func (e *encoder) rigid(r *Rigid) {
	e.text(r.Name)
	e.text(r.NameE)
	e.index(e.h.BoneSize, r.Bone)
	e.u8(r.Group)
	e.write(r.Mask)
	e.u8(r.Shape)
	e.vec3(r.Size)
	e.vec3(r.Location)
	e.vec3(r.Rotation)
	e.f32(r.Mass)
	e.f32(r.LinearDamping)
	e.f32(r.AngularDamping)
	e.f32(r.Restitution)
	e.f32(r.Friction)
	e.u8(r.Mode)
}

func (e *encoder) joint(j *Joint) {
	e.text(j.Name)
	e.text(j.NameE)
	e.u8(0) // spring 6DOF
	e.index(e.h.RigidSize, j.RigidA)
	e.index(e.h.RigidSize, j.RigidB)
	e.vec3(j.Location)
	e.vec3(j.Rotation)
	e.vec3(j.LocationMin)
	e.vec3(j.LocationMax)
	e.vec3(j.RotationMin)
	e.vec3(j.RotationMax)
	e.vec3(j.SpringLoc)
	e.vec3(j.SpringRot)
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
