package export

import "fmt"

// Diagnostic codes. Each marks a recoverable data issue: the offending item
// is skipped or replaced and the export continues.
const (
	CodeTextureMissing          = "texture_missing"
	CodeTextureUnreadable       = "texture_unreadable"
	CodeGroupMorphUnresolved    = "group_morph_unresolved"
	CodeTooManyUVChannels       = "too_many_uv_channels"
	CodeRigidNaNTransform       = "rigid_nan_transform"
	CodeRigidSettingsMissing    = "rigid_settings_missing"
	CodeJointSettingsMissing    = "joint_settings_missing"
	CodeIKInvalid               = "ik_invalid"
	CodeIKBoneReused            = "ik_bone_reused"
	CodeIKTargetMissing         = "ik_target_missing"
	CodeMaterialIndexOutOfRange = "material_index_out_of_range"
	CodeShapeKeyVertexMismatch  = "shape_key_vertex_mismatch"
	CodeBoneMorphBoneMissing    = "bone_morph_bone_missing"
	CodeMaterialMorphMissing    = "material_morph_material_missing"
	CodeUVMorphLegacy           = "uv_morph_legacy"
	CodeUVMorphIncomplete       = "uv_morph_incomplete"
	CodeDisplayItemMissing      = "display_item_missing"
	CodeEmptyModelName          = "empty_model_name"
)

// Component names used in diagnostics and log fields.
const (
	compModel     = "model"
	compBones     = "bones"
	compIK        = "ik"
	compMeshes    = "meshes"
	compMaterials = "materials"
	compMorphs    = "morphs"
	compDisplay   = "display"
	compRigid     = "rigid"
)

// Diagnostic is one recoverable issue found during an export.
type Diagnostic struct {
	Component string
	Code      string
	Subject   string // the item the issue is about
	Detail    string
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s (%s)", d.Component, d.Code, d.Subject)
	if d.Detail != "" {
		s += ": " + d.Detail
	}
	return s
}

// diagnostics accumulates issues in the order they are found.
type diagnostics []Diagnostic

func (ds *diagnostics) add(component, code, subject, format string, args ...any) {
	*ds = append(*ds, Diagnostic{
		Component: component,
		Code:      code,
		Subject:   subject,
		Detail:    fmt.Sprintf(format, args...),
	})
}

// CountByCode tallies diagnostics per code.
func CountByCode(ds []Diagnostic) map[string]int {
	counts := make(map[string]int)
	for _, d := range ds {
		counts[d.Code]++
	}
	return counts
}
