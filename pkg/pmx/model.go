// Package pmx provides the in-memory PMX 2.0 model together with a binary
// writer and reader for it.
package pmx

import (
	"errors"
	"fmt"

	"github.com/Faultbox/pmxport/pkg/math"
)

// PMX format errors.
var (
	ErrInvalidMagic       = errors.New("invalid PMX magic: expected 'PMX '")
	ErrUnsupportedVersion = errors.New("unsupported PMX version")
	ErrTruncatedData      = errors.New("truncated PMX data")
	ErrInvalidIndexSize   = errors.New("invalid PMX index size")
	ErrTooManyAddUVs      = errors.New("additional UV count exceeds 4")
	ErrUnknownWeightType  = errors.New("unknown bone weight type")
	ErrUnknownMorphKind   = errors.New("unknown morph kind")
)

// MaxAddUV is the largest number of additional UV channels a vertex can carry.
const MaxAddUV = 4

// Model is a complete PMX document.
type Model struct {
	Name      string
	NameE     string
	Comment   string
	CommentE  string
	Vertices  []Vertex
	Faces     [][3]int
	Textures  []string
	Materials []Material
	Bones     []Bone
	Morphs    []Morph
	Displays  []Display
	Rigids    []Rigid
	Joints    []Joint
}

// WeightType selects the skinning scheme of a vertex.
type WeightType uint8

const (
	BDEF1 WeightType = 0
	BDEF2 WeightType = 1
	BDEF4 WeightType = 2
	SDEF  WeightType = 3
)

// String returns the conventional scheme name.
func (t WeightType) String() string {
	switch t {
	case BDEF1:
		return "BDEF1"
	case BDEF2:
		return "BDEF2"
	case BDEF4:
		return "BDEF4"
	case SDEF:
		return "SDEF"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// BoneWeight is the skinning record of a vertex. Bones and Weights use
// 1, 2 or 4 slots depending on Type; for BDEF2 and SDEF only Weights[0]
// is stored and the second bone gets 1-Weights[0].
type BoneWeight struct {
	Type    WeightType
	Bones   [4]int
	Weights [4]float32
	C       math.Vec3 // SDEF only
	R0      math.Vec3
	R1      math.Vec3
}

// Vertex is one indexed vertex.
type Vertex struct {
	Position  math.Vec3
	Normal    math.Vec3
	UV        math.Vec2
	AddUVs    []math.Vec4
	Weight    BoneWeight
	EdgeScale float32
}

// Material flag bits.
const (
	MaterialDoubleSided   uint8 = 0x01
	MaterialDropShadow    uint8 = 0x02
	MaterialSelfShadowMap uint8 = 0x04
	MaterialSelfShadow    uint8 = 0x08
	MaterialToonEdge      uint8 = 0x10
)

// Sphere texture modes.
const (
	SphereModeOff uint8 = 0
	SphereModeMul uint8 = 1
	SphereModeAdd uint8 = 2
	SphereModeSub uint8 = 3
)

// Material is one entry of the material table. VertexCount is the number of
// face corners (3 per triangle) drawn with it, in face order.
type Material struct {
	Name          string
	NameE         string
	Diffuse       math.Vec4
	Specular      math.Vec3
	Shininess     float32
	Ambient       math.Vec3
	Flags         uint8
	EdgeColor     math.Vec4
	EdgeSize      float32
	Texture       int
	SphereTexture int
	SphereMode    uint8
	SharedToon    bool
	ToonTexture   int // shared toon number when SharedToon, texture index otherwise
	Comment       string
	VertexCount   int
}

// Bone flag bits.
const (
	BoneTailIsBone         uint16 = 0x0001
	BoneRotatable          uint16 = 0x0002
	BoneMovable            uint16 = 0x0004
	BoneVisible            uint16 = 0x0008
	BoneControllable       uint16 = 0x0010
	BoneIK                 uint16 = 0x0020
	BoneAdditionalLocal    uint16 = 0x0080
	BoneAdditionalRotate   uint16 = 0x0100
	BoneAdditionalLocation uint16 = 0x0200
	BoneFixedAxis          uint16 = 0x0400
	BoneLocalAxes          uint16 = 0x0800
	BoneTransformAfterPhys uint16 = 0x1000
	BoneExternalParent     uint16 = 0x2000
)

// IKLink is one bone of an IK chain. Limits are only written when HasLimit.
type IKLink struct {
	Bone     int
	HasLimit bool
	Min      math.Vec3
	Max      math.Vec3
}

// Bone is one entry of the bone table. References are indices into the
// same table, -1 for none.
type Bone struct {
	Name           string
	NameE          string
	Location       math.Vec3
	Parent         int
	TransformOrder int

	Visible      bool
	Controllable bool
	Movable      bool
	Rotatable    bool
	AfterPhysics bool

	// Display connection: TailBone when TailIsBone, TailOffset otherwise.
	TailIsBone bool
	TailBone   int
	TailOffset math.Vec3

	AdditionalRotate    bool
	AdditionalLocation  bool
	AdditionalParent    int
	AdditionalInfluence float32

	FixedAxis  *math.Vec3
	LocalAxisX *math.Vec3
	LocalAxisZ *math.Vec3

	IK           bool
	IKTarget     int
	IKLoop       int
	IKLimitAngle float32
	IKLinks      []IKLink
}

// NewBone returns a bone with every reference unset and the default flags
// of a freshly created bone.
func NewBone(name string) Bone {
	return Bone{
		Name:                name,
		Parent:              -1,
		TailBone:            -1,
		AdditionalParent:    -1,
		AdditionalInfluence: 1,
		IKTarget:            -1,
		Visible:             true,
		Controllable:        true,
		Movable:             true,
		Rotatable:           true,
	}
}

// Flags packs the boolean fields into the PMX bone flag word.
func (b *Bone) Flags() uint16 {
	var f uint16
	set := func(cond bool, bit uint16) {
		if cond {
			f |= bit
		}
	}
	set(b.TailIsBone, BoneTailIsBone)
	set(b.Rotatable, BoneRotatable)
	set(b.Movable, BoneMovable)
	set(b.Visible, BoneVisible)
	set(b.Controllable, BoneControllable)
	set(b.IK, BoneIK)
	set(b.AdditionalRotate, BoneAdditionalRotate)
	set(b.AdditionalLocation, BoneAdditionalLocation)
	set(b.FixedAxis != nil, BoneFixedAxis)
	set(b.LocalAxisX != nil && b.LocalAxisZ != nil, BoneLocalAxes)
	set(b.AfterPhysics, BoneTransformAfterPhys)
	return f
}

// MorphKind is the PMX morph type byte.
type MorphKind uint8

const (
	MorphGroup    MorphKind = 0
	MorphVertex   MorphKind = 1
	MorphBone     MorphKind = 2
	MorphUV       MorphKind = 3 // UV1..UV4 follow as 4..7
	MorphMaterial MorphKind = 8
)

// String returns the kind name used in morph references.
func (k MorphKind) String() string {
	switch {
	case k == MorphGroup:
		return "group"
	case k == MorphVertex:
		return "vertex"
	case k == MorphBone:
		return "bone"
	case k >= MorphUV && k <= MorphUV+MaxAddUV:
		return "uv"
	case k == MorphMaterial:
		return "material"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Morph panel categories.
const (
	CategorySystem  uint8 = 0
	CategoryEyebrow uint8 = 1
	CategoryEye     uint8 = 2
	CategoryMouth   uint8 = 3
	CategoryOther   uint8 = 4
)

// GroupOffset references another morph by index.
type GroupOffset struct {
	Morph  int
	Factor float32
}

// VertexOffset moves one vertex.
type VertexOffset struct {
	Vertex int
	Offset math.Vec3
}

// BoneOffset moves and rotates one bone. Rotation is a quaternion.
type BoneOffset struct {
	Bone     int
	Location math.Vec3
	Rotation math.Quat
}

// UVOffset shifts one vertex's UV channel.
type UVOffset struct {
	Vertex int
	Offset math.Vec4
}

// Material morph offset types.
const (
	MaterialOffsetMult uint8 = 0
	MaterialOffsetAdd  uint8 = 1
)

// MaterialOffset changes a material; Material -1 targets every material.
type MaterialOffset struct {
	Material   int
	OffsetType uint8
	Diffuse    math.Vec4
	Specular   math.Vec3
	Shininess  float32
	Ambient    math.Vec3
	EdgeColor  math.Vec4
	EdgeSize   float32
	Texture    math.Vec4
	Sphere     math.Vec4
	Toon       math.Vec4
}

// Morph is one entry of the morph table. Only the offset slice matching
// Kind is populated.
type Morph struct {
	Name     string
	NameE    string
	Category uint8
	Kind     MorphKind

	Group    []GroupOffset
	Vertex   []VertexOffset
	Bone     []BoneOffset
	UV       []UVOffset
	Material []MaterialOffset
}

// OffsetCount returns the number of offsets of the populated kind.
func (m *Morph) OffsetCount() int {
	return len(m.Group) + len(m.Vertex) + len(m.Bone) + len(m.UV) + len(m.Material)
}

// DisplayItem is one display frame entry: a bone (IsMorph false) or a morph.
type DisplayItem struct {
	IsMorph bool
	Index   int
}

// Display is a display frame.
type Display struct {
	Name    string
	NameE   string
	Special bool
	Items   []DisplayItem
}

// Rigid body shapes.
const (
	ShapeSphere  uint8 = 0
	ShapeBox     uint8 = 1
	ShapeCapsule uint8 = 2
)

// Rigid is a rigid body. Rotation is Euler angles in radians.
type Rigid struct {
	Name           string
	NameE          string
	Bone           int
	Group          uint8
	Mask           uint16
	Shape          uint8
	Size           math.Vec3
	Location       math.Vec3
	Rotation       math.Vec3
	Mass           float32
	LinearDamping  float32
	AngularDamping float32
	Restitution    float32
	Friction       float32
	Mode           uint8
}

// Joint is a 6DOF spring joint between two rigid bodies.
type Joint struct {
	Name        string
	NameE       string
	RigidA      int
	RigidB      int
	Location    math.Vec3
	Rotation    math.Vec3
	LocationMin math.Vec3
	LocationMax math.Vec3
	RotationMin math.Vec3
	RotationMax math.Vec3
	SpringLoc   math.Vec3
	SpringRot   math.Vec3
}
