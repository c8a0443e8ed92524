package pmx

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/pmxport/pkg/encoding"
	"github.com/Faultbox/pmxport/pkg/math"
)

// maxCount bounds every table length read from a file.
const maxCount = 1 << 24

// ReadFile parses the PMX file at path.
func ReadFile(path string) (*Model, Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses a PMX 2.0 document.
func Read(r io.Reader) (*Model, Header, error) {
	d := &decoder{r: bufio.NewReader(r)}
	if err := d.header(); err != nil {
		return nil, Header{}, err
	}
	m := d.model()
	if d.err != nil {
		if errors.Is(d.err, io.EOF) || errors.Is(d.err, io.ErrUnexpectedEOF) {
			return nil, d.h, fmt.Errorf("%w: %v", ErrTruncatedData, d.err)
		}
		return nil, d.h, d.err
	}
	return m, d.h, nil
}

// decoder mirrors encoder: the first error sticks and later reads return
// zero values.
type decoder struct {
	r   io.Reader
	h   Header
	err error
}

func (d *decoder) read(v any) {
	if d.err != nil {
		return
	}
	d.err = binary.Read(d.r, binary.LittleEndian, v)
}

func (d *decoder) u8() uint8 {
	var v uint8
	d.read(&v)
	return v
}

func (d *decoder) i32() int {
	var v int32
	d.read(&v)
	return int(v)
}

func (d *decoder) f32() float32 {
	var v float32
	d.read(&v)
	return v
}

func (d *decoder) vec2() math.Vec2 {
	var a [2]float32
	d.read(&a)
	return math.Vec2{X: a[0], Y: a[1]}
}

func (d *decoder) vec3() math.Vec3 {
	var a [3]float32
	d.read(&a)
	return math.FromArray(a)
}

func (d *decoder) vec4() math.Vec4 {
	var a [4]float32
	d.read(&a)
	return math.Vec4{X: a[0], Y: a[1], Z: a[2], W: a[3]}
}

func (d *decoder) quat() math.Quat {
	v := d.vec4()
	return math.Quat{X: v.X, Y: v.Y, Z: v.Z, W: v.W}
}

func (d *decoder) flag() bool { return d.u8() != 0 }

func (d *decoder) count() int {
	n := d.i32()
	if d.err == nil && (n < 0 || n > maxCount) {
		d.err = fmt.Errorf("invalid element count %d", n)
	}
	if d.err != nil {
		return 0
	}
	return n
}

func (d *decoder) text() string {
	n := d.count()
	if n == 0 {
		return ""
	}
	buf := make([]byte, n)
	if d.err == nil {
		_, d.err = io.ReadFull(d.r, buf)
	}
	if d.err != nil {
		return ""
	}
	if d.h.Encoding == encodingUTF8 {
		return string(buf)
	}
	s, err := encoding.UTF16LEToUTF8(buf)
	if err != nil {
		d.err = err
	}
	return s
}

func (d *decoder) index(size uint8) int {
	switch size {
	case 1:
		var v int8
		d.read(&v)
		return int(v)
	case 2:
		var v int16
		d.read(&v)
		return int(v)
	default:
		var v int32
		d.read(&v)
		return int(v)
	}
}

func (d *decoder) vertexIndex() int {
	switch d.h.VertexSize {
	case 1:
		var v uint8
		d.read(&v)
		return int(v)
	case 2:
		var v uint16
		d.read(&v)
		return int(v)
	default:
		var v int32
		d.read(&v)
		return int(v)
	}
}

func (d *decoder) header() error {
	var mg [4]byte
	d.read(&mg)
	if d.err != nil {
		return ErrTruncatedData
	}
	if string(mg[:]) != magic {
		return ErrInvalidMagic
	}
	d.h.Version = d.f32()
	if d.err == nil && d.h.Version != version {
		return fmt.Errorf("%w: %.1f", ErrUnsupportedVersion, d.h.Version)
	}
	n := int(d.u8())
	globals := make([]byte, n)
	d.read(globals)
	if d.err != nil || n < 8 {
		return ErrTruncatedData
	}
	d.h.Encoding = globals[0]
	d.h.AddUVCount = int(globals[1])
	d.h.VertexSize = globals[2]
	d.h.TextureSize = globals[3]
	d.h.MaterialSize = globals[4]
	d.h.BoneSize = globals[5]
	d.h.MorphSize = globals[6]
	d.h.RigidSize = globals[7]
	if d.h.AddUVCount > MaxAddUV {
		return fmt.Errorf("%w: %d", ErrTooManyAddUVs, d.h.AddUVCount)
	}
	for _, s := range globals[2:8] {
		if !validIndexSize(s) {
			return fmt.Errorf("%w: %d", ErrInvalidIndexSize, s)
		}
	}
	return nil
}

func (d *decoder) model() *Model {
	m := &Model{}
	m.Name = d.text()
	m.NameE = d.text()
	m.Comment = d.text()
	m.CommentE = d.text()

	m.Vertices = make([]Vertex, d.count())
	for i := range m.Vertices {
		d.vertex(&m.Vertices[i])
	}

	corners := d.count()
	m.Faces = make([][3]int, corners/3)
	for i := range m.Faces {
		m.Faces[i] = [3]int{d.vertexIndex(), d.vertexIndex(), d.vertexIndex()}
	}

	m.Textures = make([]string, d.count())
	for i := range m.Textures {
		m.Textures[i] = d.text()
	}

	m.Materials = make([]Material, d.count())
	for i := range m.Materials {
		d.material(&m.Materials[i])
	}

	m.Bones = make([]Bone, d.count())
	for i := range m.Bones {
		d.bone(&m.Bones[i])
	}

	m.Morphs = make([]Morph, d.count())
	for i := range m.Morphs {
		d.morph(&m.Morphs[i])
	}

	m.Displays = make([]Display, d.count())
	for i := range m.Displays {
		d.display(&m.Displays[i])
	}

	m.Rigids = make([]Rigid, d.count())
	for i := range m.Rigids {
		d.rigid(&m.Rigids[i])
	}

	m.Joints = make([]Joint, d.count())
	for i := range m.Joints {
		d.joint(&m.Joints[i])
	}
	return m
}

func (d *decoder) vertex(v *Vertex) {
	v.Position = d.vec3()
	v.Normal = d.vec3()
	v.UV = d.vec2()
	if d.h.AddUVCount > 0 {
		v.AddUVs = make([]math.Vec4, d.h.AddUVCount)
		for i := range v.AddUVs {
			v.AddUVs[i] = d.vec4()
		}
	}

	w := &v.Weight
	w.Type = WeightType(d.u8())
	switch w.Type {
	case BDEF1:
		w.Bones[0] = d.index(d.h.BoneSize)
		w.Weights[0] = 1
	case BDEF2:
		w.Bones[0] = d.index(d.h.BoneSize)
		w.Bones[1] = d.index(d.h.BoneSize)
		w.Weights[0] = d.f32()
		w.Weights[1] = 1 - w.Weights[0]
	case BDEF4:
		for i := 0; i < 4; i++ {
			w.Bones[i] = d.index(d.h.BoneSize)
		}
		for i := 0; i < 4; i++ {
			w.Weights[i] = d.f32()
		}
	case SDEF:
		w.Bones[0] = d.index(d.h.BoneSize)
		w.Bones[1] = d.index(d.h.BoneSize)
		w.Weights[0] = d.f32()
		w.Weights[1] = 1 - w.Weights[0]
		w.C = d.vec3()
		w.R0 = d.vec3()
		w.R1 = d.vec3()
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: %d", ErrUnknownWeightType, w.Type)
		}
	}
	v.EdgeScale = d.f32()
}

func (d *decoder) material(m *Material) {
	m.Name = d.text()
	m.NameE = d.text()
	m.Diffuse = d.vec4()
	m.Specular = d.vec3()
	m.Shininess = d.f32()
	m.Ambient = d.vec3()
	m.Flags = d.u8()
	m.EdgeColor = d.vec4()
	m.EdgeSize = d.f32()
	m.Texture = d.index(d.h.TextureSize)
	m.SphereTexture = d.index(d.h.TextureSize)
	m.SphereMode = d.u8()
	m.SharedToon = d.flag()
	if m.SharedToon {
		m.ToonTexture = int(d.u8())
	} else {
		m.ToonTexture = d.index(d.h.TextureSize)
	}
	m.Comment = d.text()
	m.VertexCount = d.i32()
}

func (d *decoder) bone(b *Bone) {
	*b = NewBone(d.text())
	b.NameE = d.text()
	b.Location = d.vec3()
	b.Parent = d.index(d.h.BoneSize)
	b.TransformOrder = d.i32()

	var flags uint16
	d.read(&flags)
	b.TailIsBone = flags&BoneTailIsBone != 0
	b.Rotatable = flags&BoneRotatable != 0
	b.Movable = flags&BoneMovable != 0
	b.Visible = flags&BoneVisible != 0
	b.Controllable = flags&BoneControllable != 0
	b.IK = flags&BoneIK != 0
	b.AdditionalRotate = flags&BoneAdditionalRotate != 0
	b.AdditionalLocation = flags&BoneAdditionalLocation != 0
	b.AfterPhysics = flags&BoneTransformAfterPhys != 0

	if b.TailIsBone {
		b.TailBone = d.index(d.h.BoneSize)
	} else {
		b.TailOffset = d.vec3()
	}
	if b.AdditionalRotate || b.AdditionalLocation {
		b.AdditionalParent = d.index(d.h.BoneSize)
		b.AdditionalInfluence = d.f32()
	}
	if flags&BoneFixedAxis != 0 {
		axis := d.vec3()
		b.FixedAxis = &axis
	}
	if flags&BoneLocalAxes != 0 {
		x, z := d.vec3(), d.vec3()
		b.LocalAxisX, b.LocalAxisZ = &x, &z
	}
	if flags&BoneExternalParent != 0 {
		d.i32()
	}
	if b.IK {
		b.IKTarget = d.index(d.h.BoneSize)
		b.IKLoop = d.i32()
		b.IKLimitAngle = d.f32()
		b.IKLinks = make([]IKLink, d.count())
		for i := range b.IKLinks {
			l := &b.IKLinks[i]
			l.Bone = d.index(d.h.BoneSize)
			l.HasLimit = d.flag()
			if l.HasLimit {
				l.Min = d.vec3()
				l.Max = d.vec3()
			}
		}
	}
}

func (d *decoder) morph(m *Morph) {
	m.Name = d.text()
	m.NameE = d.text()
	m.Category = d.u8()
	m.Kind = MorphKind(d.u8())
	n := d.count()
	switch {
	case m.Kind == MorphGroup:
		m.Group = make([]GroupOffset, n)
		for i := range m.Group {
			m.Group[i] = GroupOffset{Morph: d.index(d.h.MorphSize), Factor: d.f32()}
		}
	case m.Kind == MorphVertex:
		m.Vertex = make([]VertexOffset, n)
		for i := range m.Vertex {
			m.Vertex[i] = VertexOffset{Vertex: d.vertexIndex(), Offset: d.vec3()}
		}
	case m.Kind == MorphBone:
		m.Bone = make([]BoneOffset, n)
		for i := range m.Bone {
			m.Bone[i] = BoneOffset{Bone: d.index(d.h.BoneSize), Location: d.vec3(), Rotation: d.quat()}
		}
	case m.Kind >= MorphUV && m.Kind <= MorphUV+MaxAddUV:
		m.UV = make([]UVOffset, n)
		for i := range m.UV {
			m.UV[i] = UVOffset{Vertex: d.vertexIndex(), Offset: d.vec4()}
		}
	case m.Kind == MorphMaterial:
		m.Material = make([]MaterialOffset, n)
		for i := range m.Material {
			o := &m.Material[i]
			o.Material = d.index(d.h.MaterialSize)
			o.OffsetType = d.u8()
			o.Diffuse = d.vec4()
			o.Specular = d.vec3()
			o.Shininess = d.f32()
			o.Ambient = d.vec3()
			o.EdgeColor = d.vec4()
			o.EdgeSize = d.f32()
			o.Texture = d.vec4()
			o.Sphere = d.vec4()
			o.Toon = d.vec4()
		}
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: %d", ErrUnknownMorphKind, m.Kind)
		}
	}
}

func (d *decoder) display(disp *Display) {
	disp.Name = d.text()
	disp.NameE = d.text()
	disp.Special = d.flag()
	disp.Items = make([]DisplayItem, d.count())
	for i := range disp.Items {
		it := &disp.Items[i]
		it.IsMorph = d.flag()
		if it.IsMorph {
			it.Index = d.index(d.h.MorphSize)
		} else {
			it.Index = d.index(d.h.BoneSize)
		}
	}
}

func (d *decoder) rigid(r *Rigid) {
	r.Name = d.text()
	r.NameE = d.text()
	r.Bone = d.index(d.h.BoneSize)
	r.Group = d.u8()
	d.read(&r.Mask)
	r.Shape = d.u8()
	r.Size = d.vec3()
	r.Location = d.vec3()
	r.Rotation = d.vec3()
	r.Mass = d.f32()
	r.LinearDamping = d.f32()
	r.AngularDamping = d.f32()
	r.Restitution = d.f32()
	r.Friction = d.f32()
	r.Mode = d.u8()
}

func (d *decoder) joint(j *Joint) {
	j.Name = d.text()
	j.NameE = d.text()
	d.u8() // joint type
	j.RigidA = d.index(d.h.RigidSize)
	j.RigidB = d.index(d.h.RigidSize)
	j.Location = d.vec3()
	j.Rotation = d.vec3()
	j.LocationMin = d.vec3()
	j.LocationMax = d.vec3()
	j.RotationMin = d.vec3()
	j.RotationMax = d.vec3()
	j.SpringLoc = d.vec3()
	j.SpringRot = d.vec3()
}
