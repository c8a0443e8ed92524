package gltfscene

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SidecarSuffix is appended to the model path to find its sidecar.
const SidecarSuffix = ".pmx.yaml"

// Sidecar carries the MMD settings glTF has no place for. Every section
// is optional; a model with a sidecar has a model root.
type Sidecar struct {
	Model          ModelInfo               `yaml:"model"`
	Bones          map[string]BoneInfo     `yaml:"bones"`
	Materials      map[string]MaterialInfo `yaml:"materials"`
	VertexMorphs   []MorphInfo             `yaml:"vertex_morphs"`
	BoneMorphs     []BoneMorphInfo         `yaml:"bone_morphs"`
	MaterialMorphs []MaterialMorphInfo     `yaml:"material_morphs"`
	UVMorphs       []UVMorphInfo           `yaml:"uv_morphs"`
	GroupMorphs    []GroupMorphInfo        `yaml:"group_morphs"`
	DisplayFrames  []DisplayFrameInfo      `yaml:"display_frames"`
	RigidBodies    []RigidBodyInfo         `yaml:"rigid_bodies"`
	Joints         []JointInfo             `yaml:"joints"`
}

// ModelInfo is the model root.
type ModelInfo struct {
	Name         string `yaml:"name"`
	NameE        string `yaml:"name_e"`
	Comment      string `yaml:"comment"`
	CommentE     string `yaml:"comment_e"`
	IKLoopFactor int    `yaml:"ik_loop_factor"`
}

// IKInfo describes an IK constraint. It sits on the last bone of the chain
// and names the bone that drives it.
type IKInfo struct {
	Control    string  `yaml:"control"`
	ChainCount int     `yaml:"chain_count"`
	Iterations int     `yaml:"iterations"`
	UseTail    *bool   `yaml:"use_tail"`
	Angle      float32 `yaml:"angle"`
	Mute       bool    `yaml:"mute"`
}

// LimitInfo is a per-axis rotation limit in radians; nil axes are free.
type LimitInfo struct {
	Min [3]*float32 `yaml:"min"`
	Max [3]*float32 `yaml:"max"`
}

// BoneInfo holds per-bone MMD settings keyed by joint node name.
type BoneInfo struct {
	NameJ             string      `yaml:"name_j"`
	NameE             string      `yaml:"name_e"`
	BoneID            *int        `yaml:"bone_id"`
	Hidden            bool        `yaml:"hidden"`
	Tip               bool        `yaml:"tip"`
	Connected         bool        `yaml:"connected"`
	LockLocation      bool        `yaml:"lock_location"`
	LockRotation      bool        `yaml:"lock_rotation"`
	TransformOrder    int         `yaml:"transform_order"`
	AfterPhysics      bool        `yaml:"after_physics"`
	AdditionalBone    string      `yaml:"additional_bone"`
	AdditionalRotate  bool        `yaml:"additional_rotate"`
	AdditionalMove    bool        `yaml:"additional_move"`
	AdditionalFactor  *float32    `yaml:"additional_factor"`
	TailBone          string      `yaml:"tail_bone"`
	TailOffset        bool        `yaml:"tail_offset"`
	FixedAxis         *[3]float32 `yaml:"fixed_axis"`
	LocalAxisX        *[3]float32 `yaml:"local_axis_x"`
	LocalAxisZ        *[3]float32 `yaml:"local_axis_z"`
	IK                *IKInfo     `yaml:"ik"`
	LockIK            [3]bool     `yaml:"lock_ik"`
	IKLimit           *LimitInfo  `yaml:"ik_limit"`
	IKLimitCustom     []LimitInfo `yaml:"ik_limit_custom"`
	LimitRotation     *LimitInfo  `yaml:"limit_rotation"`
	IKTargetOverride  string      `yaml:"ik_target_override"`
	IKTargetCustomFor string      `yaml:"ik_target_custom_for"`
}

// MaterialInfo overrides the glTF material of the same name.
type MaterialInfo struct {
	NameJ         string      `yaml:"name_j"`
	NameE         string      `yaml:"name_e"`
	Ambient       *[3]float32 `yaml:"ambient"`
	Specular      *[3]float32 `yaml:"specular"`
	Shininess     *float32    `yaml:"shininess"`
	DropShadow    *bool       `yaml:"drop_shadow"`
	SelfShadowMap *bool       `yaml:"self_shadow_map"`
	SelfShadow    *bool       `yaml:"self_shadow"`
	ToonEdge      bool        `yaml:"toon_edge"`
	EdgeColor     *[4]float32 `yaml:"edge_color"`
	EdgeWeight    *float32    `yaml:"edge_weight"`
	SphereTexture string      `yaml:"sphere_texture"`
	SphereMode    int         `yaml:"sphere_mode"`
	SharedToon    *int        `yaml:"shared_toon"`
	ToonTexture   string      `yaml:"toon_texture"`
	Comment       string      `yaml:"comment"`
}

// MorphInfo is the naming part every morph kind shares.
type MorphInfo struct {
	Name     string `yaml:"name"`
	NameE    string `yaml:"name_e"`
	Category string `yaml:"category"`
}

type BoneMorphInfo struct {
	MorphInfo `yaml:",inline"`
	Bones     []BoneOffsetInfo `yaml:"bones"`
}

type BoneOffsetInfo struct {
	Bone     string      `yaml:"bone"`
	Location [3]float32  `yaml:"location"`
	Rotation *[4]float32 `yaml:"rotation"` // w, x, y, z
}

type MaterialMorphInfo struct {
	MorphInfo `yaml:",inline"`
	Offsets   []MaterialOffsetInfo `yaml:"offsets"`
}

type MaterialOffsetInfo struct {
	Material   string     `yaml:"material"`
	OffsetType string     `yaml:"offset_type"`
	Diffuse    [4]float32 `yaml:"diffuse"`
	Specular   [3]float32 `yaml:"specular"`
	Shininess  float32    `yaml:"shininess"`
	Ambient    [3]float32 `yaml:"ambient"`
	EdgeColor  [4]float32 `yaml:"edge_color"`
	EdgeWeight float32    `yaml:"edge_weight"`
	Texture    [4]float32 `yaml:"texture"`
	Sphere     [4]float32 `yaml:"sphere"`
	Toon       [4]float32 `yaml:"toon"`
}

// UVMorphInfo reads its offsets from the UV_<name>[+-][XYZW] vertex groups,
// stored as _UV_<name>[+-][XYZW] attributes.
type UVMorphInfo struct {
	MorphInfo `yaml:",inline"`
	UVIndex   int      `yaml:"uv_index"`
	DataType  string   `yaml:"data_type"`
	Scale     *float32 `yaml:"vertex_group_scale"`
}

type GroupMorphInfo struct {
	MorphInfo `yaml:",inline"`
	Morphs    []GroupItemInfo `yaml:"morphs"`
}

type GroupItemInfo struct {
	Kind   string  `yaml:"kind"` // vertex_morphs, bone_morphs, ...
	Name   string  `yaml:"name"`
	Factor float32 `yaml:"factor"`
}

type DisplayFrameInfo struct {
	Name    string            `yaml:"name"`
	NameE   string            `yaml:"name_e"`
	Special bool              `yaml:"special"`
	Items   []DisplayItemInfo `yaml:"items"`
}

// DisplayItemInfo names a bone, or a morph when Morph is set.
type DisplayItemInfo struct {
	Bone  string `yaml:"bone"`
	Morph string `yaml:"morph"`
	Kind  string `yaml:"kind"`
}

// RigidBodyInfo places a collision shape in glTF space.
type RigidBodyInfo struct {
	Name           string       `yaml:"name"`
	NameJ          string       `yaml:"name_j"`
	NameE          string       `yaml:"name_e"`
	Location       [3]float32   `yaml:"location"`
	Rotation       [3]float32   `yaml:"rotation"` // Euler XYZ, radians
	Shape          string       `yaml:"shape"`
	Size           [3]float32   `yaml:"size"`
	Mode           int          `yaml:"mode"`
	Bone           string       `yaml:"bone"`
	CollisionGroup int          `yaml:"collision_group"`
	NoCollide      []int        `yaml:"no_collide"`
	Physics        *PhysicsInfo `yaml:"physics"`
}

type PhysicsInfo struct {
	Mass           float32 `yaml:"mass"`
	Friction       float32 `yaml:"friction"`
	Restitution    float32 `yaml:"restitution"`
	LinearDamping  float32 `yaml:"linear_damping"`
	AngularDamping float32 `yaml:"angular_damping"`
}

type JointInfo struct {
	Name          string      `yaml:"name"`
	NameJ         string      `yaml:"name_j"`
	NameE         string      `yaml:"name_e"`
	Location      [3]float32  `yaml:"location"`
	Rotation      [3]float32  `yaml:"rotation"`
	RigidA        string      `yaml:"rigid_a"`
	RigidB        string      `yaml:"rigid_b"`
	Limits        *LimitsInfo `yaml:"limits"`
	SpringLinear  [3]float32  `yaml:"spring_linear"`
	SpringAngular [3]float32  `yaml:"spring_angular"`
}

type LimitsInfo struct {
	LinLower [3]float32 `yaml:"lin_lower"`
	LinUpper [3]float32 `yaml:"lin_upper"`
	AngLower [3]float32 `yaml:"ang_lower"`
	AngUpper [3]float32 `yaml:"ang_upper"`
}

// LoadSidecar reads a sidecar file. A missing file yields nil and no error.
func LoadSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading sidecar")
	}
	var s Sidecar
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "parsing sidecar %s", path)
	}
	return &s, nil
}
