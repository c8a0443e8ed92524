package export

import (
	"testing"

	"go.uber.org/zap"

	"github.com/Faultbox/pmxport/internal/scene"
	pmath "github.com/Faultbox/pmxport/pkg/math"
)

// makeLeg returns leg > knee > ankle plus a "leg IK" control bone, with an
// IK constraint on knee that reaches ankle through the knee's tail.
func makeLeg() *scene.Armature {
	leg := bone("leg", "", 0, pmath.Vec3{Z: 1}, pmath.Vec3{Z: 0.5})
	knee := bone("knee", "leg", 1, pmath.Vec3{Z: 0.5}, pmath.Vec3{})
	knee.UseConnect = true
	ankle := bone("ankle", "knee", 2, pmath.Vec3{}, pmath.Vec3{Y: -0.1})
	ankle.UseConnect = true
	ik := bone("leg IK", "", 3, pmath.Vec3{}, pmath.Vec3{Y: 0.2})

	knee.Constraints = []scene.Constraint{{
		Name:       "IK",
		Type:       scene.ConstraintIK,
		Subtarget:  "leg IK",
		UseTail:    true,
		ChainCount: 2,
		Iterations: 40,
	}}
	knee.IKRotationConstraint = 0.5
	knee.LockIK = [3]bool{false, true, true}
	knee.UseIKLimit = [3]bool{true, false, false}
	knee.IKMin = pmath.Vec3{X: -3}
	knee.IKMax = pmath.Vec3{X: 0}

	return &scene.Armature{Name: "arm", World: pmath.Identity(), Bones: []*scene.Bone{leg, knee, ankle, ik}}
}

func buildIK(arm *scene.Armature, policy IKLimitPolicy, factor int) (*boneTable, diagnostics) {
	var diags diagnostics
	table := buildBones(arm, 1, zap.NewNop())
	b := &ikBuilder{arm: arm, table: table, policy: policy, loopFactor: factor, diags: &diags, log: zap.NewNop()}
	b.build()
	return table, diags
}

func TestIKChain(t *testing.T) {
	table, diags := buildIK(makeLeg(), IKLimitsExportAll, 1)
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %v", diags)
	}
	ik := table.bones[table.indexOf("leg IK")]
	if !ik.IK {
		t.Fatal("control bone has no IK")
	}
	if ik.IKTarget != table.indexOf("ankle") {
		t.Errorf("IKTarget = %d, want ankle", ik.IKTarget)
	}
	if ik.IKLoop != 40 {
		t.Errorf("IKLoop = %d, want 40", ik.IKLoop)
	}
	if ik.IKLimitAngle != 0.5 {
		t.Errorf("IKLimitAngle = %v, want 0.5", ik.IKLimitAngle)
	}
	if len(ik.IKLinks) != 2 {
		t.Fatalf("%d links, want 2", len(ik.IKLinks))
	}
	if ik.IKLinks[0].Bone != table.indexOf("knee") || ik.IKLinks[1].Bone != table.indexOf("leg") {
		t.Errorf("links = %+v", ik.IKLinks)
	}
	if !ik.IKLinks[0].HasLimit {
		t.Error("knee link has no limit")
	}
	// X in [-3, 0] with Y and Z locked; PMX space negates X.
	if l := ik.IKLinks[0]; l.Min != (pmath.Vec3{}) || l.Max != (pmath.Vec3{X: 3}) {
		t.Errorf("knee limits = %v..%v, want (0,0,0)..(3,0,0)", l.Min, l.Max)
	}
	if ik.IKLinks[1].HasLimit {
		t.Error("leg link has a limit")
	}
}

func TestIKLoopFactor(t *testing.T) {
	tests := []struct {
		factor int
		want   int
	}{
		{1, 40},
		{4, 10},
		{100, 1},
	}
	for _, tt := range tests {
		table, _ := buildIK(makeLeg(), IKLimitsExportAll, tt.factor)
		if got := table.bones[table.indexOf("leg IK")].IKLoop; got != tt.want {
			t.Errorf("factor %d: IKLoop = %d, want %d", tt.factor, got, tt.want)
		}
	}
}

func TestIKIgnoreLimits(t *testing.T) {
	table, _ := buildIK(makeLeg(), IKLimitsIgnoreAll, 1)
	for _, l := range table.bones[table.indexOf("leg IK")].IKLinks {
		if l.HasLimit {
			t.Errorf("link %d has a limit", l.Bone)
		}
	}
}

func TestIKLimitPriority(t *testing.T) {
	arm := makeLeg()
	knee := arm.Bone("knee")
	leg := arm.Bone("leg")
	leg.Constraints = append(leg.Constraints, scene.Constraint{
		Name:     "limit",
		Type:     scene.ConstraintLimitRotation,
		UseLimit: [3]bool{true, false, false},
		Min:      pmath.Vec3{X: -1},
		Max:      pmath.Vec3{X: 1},
	})
	leg.UseIKLimit = [3]bool{false, true, false}

	b := &ikBuilder{arm: arm, policy: IKLimitsExportAll}
	lo, hi, unused := b.limits(leg, arm.Bone("leg IK"), 1)
	if unused != 1 {
		t.Errorf("export all: %d unused axes, want 1", unused)
	}
	if lo.X != -1 || hi.X != 1 {
		t.Errorf("override limits = %v..%v", lo, hi)
	}

	b.policy = IKLimitsOverrideControlled
	if _, _, unused = b.limits(leg, arm.Bone("leg IK"), 1); unused != 2 {
		t.Errorf("override controlled: %d unused axes, want 2", unused)
	}

	// a custom limit on the control bone replaces every other source
	control := arm.Bone("leg IK")
	control.Constraints = append(control.Constraints, scene.Constraint{
		Name:     "mmd_ik_limit_custom0",
		Type:     scene.ConstraintLimitRotation,
		UseLimit: [3]bool{false, false, true},
		Min:      pmath.Vec3{Z: -0.5},
		Max:      pmath.Vec3{Z: 0.5},
	})
	lo, hi, unused = b.limits(knee, control, 0)
	if unused != 2 {
		t.Errorf("custom: %d unused axes, want 2", unused)
	}
	if lo.Z != -0.5 || hi.Z != 0.5 {
		t.Errorf("custom limits = %v..%v", lo, hi)
	}
}

func TestConvertIKLimits(t *testing.T) {
	tests := []struct {
		name             string
		min, max         pmath.Vec3
		wantMin, wantMax pmath.Vec3
	}{
		{
			name:    "knee",
			min:     pmath.Vec3{X: -3},
			max:     pmath.Vec3{},
			wantMin: pmath.Vec3{},
			wantMax: pmath.Vec3{X: 3},
		},
		{
			// Y and Z trade places and every axis changes sign.
			name:    "all axes",
			min:     pmath.Vec3{X: -0.1, Y: -0.2, Z: -0.3},
			max:     pmath.Vec3{X: 0.4, Y: 0.5, Z: 0.6},
			wantMin: pmath.Vec3{X: -0.4, Y: -0.6, Z: -0.5},
			wantMax: pmath.Vec3{X: 0.1, Y: 0.3, Z: 0.2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := convertIKLimits(tt.min, tt.max, pmath.Identity())
			if !near(lo, tt.wantMin) || !near(hi, tt.wantMax) {
				t.Errorf("got %v..%v, want %v..%v", lo, hi, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestIKDiagnostics(t *testing.T) {
	t.Run("reused", func(t *testing.T) {
		arm := makeLeg()
		leg := arm.Bone("leg")
		leg.Constraints = append(leg.Constraints, scene.Constraint{
			Name: "IK2", Type: scene.ConstraintIK, Subtarget: "leg IK", ChainCount: 1, Iterations: 10,
		})
		_, diags := buildIK(arm, IKLimitsExportAll, 1)
		if countCode(diags, CodeIKBoneReused) != 1 {
			t.Errorf("diagnostics = %v", diags)
		}
	})

	t.Run("missing control", func(t *testing.T) {
		arm := makeLeg()
		arm.Bone("knee").Constraints[0].Subtarget = "nowhere"
		table, diags := buildIK(arm, IKLimitsExportAll, 1)
		if countCode(diags, CodeIKInvalid) != 1 {
			t.Errorf("diagnostics = %v", diags)
		}
		for _, b := range table.bones {
			if b.IK {
				t.Errorf("%s has IK", b.Name)
			}
		}
	})

	t.Run("no target", func(t *testing.T) {
		arm := makeLeg()
		arm.Bones = arm.Bones[:2:2]
		arm.Bones = append(arm.Bones, bone("leg IK", "", 3, pmath.Vec3{}, pmath.Vec3{Y: 0.2}))
		_, diags := buildIK(arm, IKLimitsExportAll, 1)
		if countCode(diags, CodeIKTargetMissing) != 1 {
			t.Errorf("diagnostics = %v", diags)
		}
	})

	t.Run("muted", func(t *testing.T) {
		arm := makeLeg()
		arm.Bone("knee").Constraints[0].Mute = true
		table, diags := buildIK(arm, IKLimitsExportAll, 1)
		if len(diags) != 0 || table.bones[table.indexOf("leg IK")].IK {
			t.Error("muted constraint was bound")
		}
	})
}

func TestIKShadowProxy(t *testing.T) {
	arm := makeLeg()
	proxy := bone("_dummy_leg IK", "leg IK", -1, pmath.Vec3{}, pmath.Vec3{Y: 0.1})
	proxy.Shadow = true
	proxy.ShadowType = scene.ShadowTypeIKProxy
	arm.Bones = append(arm.Bones, proxy)
	arm.Bone("knee").Constraints[0].Subtarget = proxy.Name

	table, diags := buildIK(arm, IKLimitsExportAll, 1)
	if len(diags) != 0 {
		t.Fatalf("diagnostics: %v", diags)
	}
	if !table.bones[table.indexOf("leg IK")].IK {
		t.Error("proxy did not resolve to its parent")
	}
}
