package export

import (
	"testing"

	"go.uber.org/zap"

	"github.com/Faultbox/pmxport/internal/scene"
	pmath "github.com/Faultbox/pmxport/pkg/math"
)

func TestBuildBonesPlaceholder(t *testing.T) {
	for _, arm := range []*scene.Armature{nil, {Name: "empty", World: pmath.Identity()}} {
		table := buildBones(arm, 1, zap.NewNop())
		if len(table.bones) != 1 {
			t.Fatalf("%d bones, want 1", len(table.bones))
		}
		b := table.bones[0]
		if b.Name != placeholderBoneName || b.NameE != placeholderBoneNameE {
			t.Errorf("placeholder named %q/%q", b.Name, b.NameE)
		}
		if b.Parent != -1 {
			t.Errorf("placeholder parent = %d", b.Parent)
		}
		if b.TailOffset.Length() == 0 {
			t.Error("placeholder has no tail offset")
		}
	}
}

func TestBuildBonesOrder(t *testing.T) {
	arm := &scene.Armature{
		Name:  "arm",
		World: pmath.Identity(),
		Bones: []*scene.Bone{
			bone("c", "a", -1, pmath.Vec3{Z: 2}, pmath.Vec3{Z: 3}),
			bone("b", "a", -1, pmath.Vec3{X: 1}, pmath.Vec3{X: 2}),
			bone("a", "", 0, pmath.Vec3{}, pmath.Vec3{Z: 1}),
			bone("shadow", "a", 1, pmath.Vec3{}, pmath.Vec3{Z: 1}),
		},
	}
	arm.Bones[3].Shadow = true
	arm.Bones[0].NameJ = "シー"
	arm.Bones[1].DisplayConnectionBone = "c"

	table := buildBones(arm, 2, zap.NewNop())
	want := []string{"a", "b", "c"}
	if len(table.names) != len(want) {
		t.Fatalf("names = %v, want %v", table.names, want)
	}
	for i, n := range want {
		if table.names[i] != n {
			t.Errorf("names[%d] = %q, want %q", i, table.names[i], n)
		}
	}

	if got := table.bones[2].Name; got != "シー" {
		t.Errorf("Name = %q, want the Japanese name", got)
	}
	if got := table.bones[1].Parent; got != 0 {
		t.Errorf("b parent = %d, want 0", got)
	}
	if got := table.bones[1].TailBone; got != 2 {
		t.Errorf("b tail bone = %d, want 2", got)
	}
	// scale 2, then Y/Z swap
	if got := table.bones[2].Location; !near(got, pmath.Vec3{Y: 4}) {
		t.Errorf("c location = %v", got)
	}
}

func TestBuildBonesFlags(t *testing.T) {
	b := bone("a", "", 0, pmath.Vec3{}, pmath.Vec3{Z: 1})
	b.LockLocation = [3]bool{true, true, true}
	b.LockRotation = [3]bool{true, false, true}
	b.Hidden = true
	b.DisplayConnection = scene.ConnectOffset
	b.HasAdditionalRotation = true
	b.AdditionalTransformBone = "missing"

	table := buildBones(&scene.Armature{World: pmath.Identity(), Bones: []*scene.Bone{b}}, 1, zap.NewNop())
	pb := table.bones[0]
	if pb.Movable {
		t.Error("fully locked bone is movable")
	}
	if !pb.Rotatable {
		t.Error("partly locked bone is not rotatable")
	}
	if pb.Visible {
		t.Error("hidden bone is visible")
	}
	if pb.TailIsBone {
		t.Error("offset connection exported as bone")
	}
	if !near(pb.TailOffset, pmath.Vec3{Y: 1}) {
		t.Errorf("TailOffset = %v", pb.TailOffset)
	}
	if !pb.AdditionalRotate || pb.AdditionalParent != -1 {
		t.Errorf("additional = %v/%d", pb.AdditionalRotate, pb.AdditionalParent)
	}
}

func TestBuildBonesTipLock(t *testing.T) {
	parent := bone("tip", "", 0, pmath.Vec3{Z: 1}, pmath.Vec3{Z: 1})
	parent.IsTip = true
	child := bone("child", "tip", 1, pmath.Vec3{Z: 1.5}, pmath.Vec3{Z: 2})
	child.UseConnect = true

	table := buildBones(&scene.Armature{World: pmath.Identity(), Bones: []*scene.Bone{parent, child}}, 1, zap.NewNop())
	if table.bones[1].Location != table.bones[0].Location {
		t.Errorf("child location %v, want parent's %v", table.bones[1].Location, table.bones[0].Location)
	}
}
