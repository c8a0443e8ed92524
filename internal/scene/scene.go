// Package scene describes the authoring scene the exporter reads from.
// Everything here is a plain snapshot; the exporter never mutates it.
package scene

import (
	pmath "github.com/Faultbox/pmxport/pkg/math"
)

// Reserved vertex group, shape key and constraint names.
const (
	GroupEdgeScale    = "mmd_edge_scale"
	GroupVertexOrder  = "mmd_vertex_order"
	ShapeKeySDEFC     = "mmd_sdef_c"
	ShapeKeySDEFR0    = "mmd_sdef_r0"
	ShapeKeySDEFR1    = "mmd_sdef_r1"
	ShapeKeySDEF      = "mmd_sdef_skinning"
	ShapeKeyBindPfx   = "mmd_bind"
	IKTargetCustom    = "mmd_ik_target_custom"
	IKTargetOverride  = "mmd_ik_target_override"
	IKLimitCustomFmt  = "mmd_ik_limit_custom%d"
	FacialFrameName   = "表情"
	ShadowTypeIKProxy = "IK_TARGET"
)

// Root carries model-level metadata.
type Root struct {
	ObjectName   string // fallback when Name is empty
	Name         string
	NameE        string
	Comment      string
	CommentE     string
	IKLoopFactor int // 0 means unset
}

// DisplayConnection selects how a bone's tail is shown.
type DisplayConnection int

const (
	ConnectNone DisplayConnection = iota
	ConnectBone
	ConnectOffset
)

// ConstraintType identifies the constraints the exporter understands.
type ConstraintType int

const (
	ConstraintOther ConstraintType = iota
	ConstraintIK
	ConstraintLimitRotation
)

// Constraint is a bone constraint. IK fields apply to ConstraintIK and
// limit fields to ConstraintLimitRotation.
type Constraint struct {
	Name      string
	Type      ConstraintType
	Mute      bool
	Target    string // armature name; "" means the owning armature
	Subtarget string // bone name

	UseTail    bool
	ChainCount int
	Iterations int

	UseLimit [3]bool
	Min      pmath.Vec3
	Max      pmath.Vec3
}

// Bone is a pose bone with its MMD properties. Positions and matrices are in
// armature space.
type Bone struct {
	Name       string
	NameJ      string
	NameE      string
	Parent     string
	BoneID     int // negative means unset
	Shadow     bool
	ShadowType string

	Head       pmath.Vec3
	Tail       pmath.Vec3
	Matrix     pmath.Mat4 // pose
	RestMatrix pmath.Mat4
	UseConnect bool

	Hidden       bool
	Controllable bool
	IsTip        bool
	LockLocation [3]bool
	LockRotation [3]bool

	TransformOrder         int
	TransformAfterDynamics bool

	HasAdditionalRotation        bool
	HasAdditionalLocation        bool
	AdditionalTransformBone      string
	AdditionalTransformInfluence float32

	DisplayConnection     DisplayConnection
	DisplayConnectionBone string

	FixedAxis  *pmath.Vec3
	LocalAxisX *pmath.Vec3
	LocalAxisZ *pmath.Vec3

	LockIK               [3]bool
	UseIKLimit           [3]bool
	IKMin                pmath.Vec3
	IKMax                pmath.Vec3
	IKRotationConstraint float32

	Constraints []Constraint
}

// Constraint returns the first constraint with the given name.
func (b *Bone) Constraint(name string) (Constraint, bool) {
	for _, c := range b.Constraints {
		if c.Name == name {
			return c, true
		}
	}
	return Constraint{}, false
}

// Armature is the skeleton. Bones keep scene order.
type Armature struct {
	Name  string
	World pmath.Mat4
	Bones []*Bone
}

// Bone returns the named bone or nil.
func (a *Armature) Bone(name string) *Bone {
	for _, b := range a.Bones {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// GroupWeight is one vertex group membership.
type GroupWeight struct {
	Group  int
	Weight float32
}

// Vertex is a mesh vertex in object space.
type Vertex struct {
	Co     pmath.Vec3
	Groups []GroupWeight
}

// Face is a triangle. Normals are per corner in object space.
type Face struct {
	Vertices [3]int
	Material int // slot index
	Normals  [3]pmath.Vec3
}

// UVLayer holds one UV per face corner (three per face).
type UVLayer struct {
	Name string
	Data []pmath.Vec2
}

// ShapeKey holds absolute vertex positions in object space.
type ShapeKey struct {
	Name      string
	Positions []pmath.Vec3
}

// Mesh is a triangulated mesh object. UVLayers[0] is the primary layer,
// ShapeKeys[0] the basis and Colors, when present, has one entry per corner.
type Mesh struct {
	Name          string
	World         pmath.Mat4
	Vertices      []Vertex
	VertexGroups  []string
	Faces         []Face
	UVLayers      []UVLayer
	Colors        []pmath.Vec4
	ShapeKeys     []ShapeKey
	MaterialSlots []string // material name per slot, "" for an empty slot
}

// VertexGroup returns the index of the named group or -1.
func (m *Mesh) VertexGroup(name string) int {
	for i, g := range m.VertexGroups {
		if g == name {
			return i
		}
	}
	return -1
}

// Material holds MMD material settings.
type Material struct {
	Name  string
	NameJ string
	NameE string

	Diffuse   pmath.Vec3
	Alpha     float32
	Ambient   pmath.Vec3
	Specular  pmath.Vec3
	Shininess float32

	DoubleSided   bool
	DropShadow    bool
	SelfShadowMap bool
	SelfShadow    bool
	ToonEdge      bool
	EdgeColor     pmath.Vec4
	EdgeWeight    float32

	Texture         string
	SphereTexture   string
	SphereMode      int
	SharedToon      bool
	SharedToonIndex int
	ToonTexture     string
	Comment         string
}

// MorphKind identifies a morph list.
type MorphKind int

const (
	MorphGroup MorphKind = iota
	MorphVertex
	MorphBone
	MorphUV
	MorphMaterial
)

var morphKindNames = [...]string{"group_morphs", "vertex_morphs", "bone_morphs", "uv_morphs", "material_morphs"}

func (k MorphKind) String() string {
	if k < 0 || int(k) >= len(morphKindNames) {
		return "unknown_morphs"
	}
	return morphKindNames[k]
}

// ParseMorphKind maps a list name such as "bone_morphs" to its kind.
func ParseMorphKind(s string) (MorphKind, bool) {
	for i, n := range morphKindNames {
		if n == s {
			return MorphKind(i), true
		}
	}
	return 0, false
}

// MorphKinds lists every kind in export order.
var MorphKinds = []MorphKind{MorphVertex, MorphBone, MorphMaterial, MorphUV, MorphGroup}

// BoneMorphData is one bone pose inside a bone morph.
type BoneMorphData struct {
	Bone     string
	Location pmath.Vec3
	Rotation pmath.Quat
}

// MaterialMorphData is one material offset.
type MaterialMorphData struct {
	Material   string // "" targets every material
	OffsetType string // "MULT" or "ADD"
	Diffuse    pmath.Vec4
	Specular   pmath.Vec3
	Shininess  float32
	Ambient    pmath.Vec3
	EdgeColor  pmath.Vec4
	EdgeWeight float32
	Texture    pmath.Vec4
	Sphere     pmath.Vec4
	Toon       pmath.Vec4
}

// GroupMorphData references another morph.
type GroupMorphData struct {
	Kind   MorphKind
	Name   string
	Factor float32
}

// UV morph data sources.
const (
	UVDataVertexGroup = "VERTEX_GROUP"
	UVDataLegacy      = "DATA"
)

// Morph is a morph definition. Vertex morph definitions only carry naming
// metadata; their offsets come from mesh shape keys.
type Morph struct {
	Kind     MorphKind
	Name     string
	NameE    string
	Category string // SYSTEM, EYEBROW, EYE, MOUTH or OTHER

	Bones     []BoneMorphData
	Materials []MaterialMorphData
	Group     []GroupMorphData

	UVIndex          int
	UVDataType       string
	VertexGroupScale float32
}

// MorphRef names a morph of a kind.
type MorphRef struct {
	Kind MorphKind
	Name string
}

// DisplayItem is a frame entry.
type DisplayItem struct {
	Morph     bool // false for bones
	MorphKind MorphKind
	Name      string
}

// DisplayFrame is a named group of bones and morphs.
type DisplayFrame struct {
	Name    string
	NameE   string
	Special bool
	Items   []DisplayItem
}

// RigidPhysics is the physics engine side of a rigid body.
type RigidPhysics struct {
	Mass           float32
	Friction       float32
	Restitution    float32
	LinearDamping  float32
	AngularDamping float32
}

// RigidBody is a collision shape object.
type RigidBody struct {
	Name           string
	NameJ          string
	NameE          string
	World          pmath.Mat4
	Shape          string // SPHERE, BOX or CAPSULE
	Size           pmath.Vec3
	Mode           int
	Bone           string
	CollisionGroup int
	CollisionMask  [16]bool // true means collide
	Physics        *RigidPhysics
}

// JointLimits is the physics engine side of a joint.
type JointLimits struct {
	ObjectA  string
	ObjectB  string
	LinLower pmath.Vec3
	LinUpper pmath.Vec3
	AngLower pmath.Vec3
	AngUpper pmath.Vec3
}

// Joint connects two rigid bodies.
type Joint struct {
	Name          string
	NameJ         string
	NameE         string
	World         pmath.Mat4
	Limits        *JointLimits
	SpringLinear  pmath.Vec3
	SpringAngular pmath.Vec3
}
