package scene

import "testing"

func TestStaticMorphsFilter(t *testing.T) {
	s := &Static{MorphDefs: []*Morph{
		{Kind: MorphBone, Name: "a"},
		{Kind: MorphVertex, Name: "b"},
		{Kind: MorphBone, Name: "c"},
	}}

	got, err := s.Morphs(MorphBone)
	if err != nil {
		t.Fatalf("Morphs: %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Errorf("unexpected bone morphs: %+v", got)
	}

	got, _ = s.Morphs(MorphGroup)
	if len(got) != 0 {
		t.Errorf("expected no group morphs, got %d", len(got))
	}
}

func TestFacialDisplayOrder(t *testing.T) {
	frames := []*DisplayFrame{
		{Name: "Root", Special: true, Items: []DisplayItem{{Name: "全ての親"}}},
		{Name: FacialFrameName, Items: []DisplayItem{
			{Morph: true, MorphKind: MorphVertex, Name: "あ"},
			{Name: "bone in facial frame"},
			{Morph: true, MorphKind: MorphBone, Name: "wink"},
		}},
	}

	tests := []struct {
		name  string
		scene *Static
		want  []MorphRef
	}{
		{
			name:  "from frames",
			scene: &Static{Frames: frames},
			want:  []MorphRef{{MorphVertex, "あ"}, {MorphBone, "wink"}},
		},
		{
			name:  "explicit order wins",
			scene: &Static{Frames: frames, FacialRefs: []MorphRef{{MorphUV, "x"}}},
			want:  []MorphRef{{MorphUV, "x"}},
		},
		{
			name:  "no facial frame",
			scene: &Static{Frames: frames[:1]},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.scene.FacialDisplayOrder()
			if err != nil {
				t.Fatalf("FacialDisplayOrder: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] got %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMorphKindNames(t *testing.T) {
	for _, k := range []MorphKind{MorphGroup, MorphVertex, MorphBone, MorphUV, MorphMaterial} {
		got, ok := ParseMorphKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseMorphKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseMorphKind("shape_keys"); ok {
		t.Error("expected unknown kind to fail")
	}
	if MorphKind(42).String() != "unknown_morphs" {
		t.Errorf("unexpected name for invalid kind: %s", MorphKind(42))
	}
}

func TestLookups(t *testing.T) {
	arm := &Armature{Bones: []*Bone{
		{Name: "root"},
		{Name: "arm", Constraints: []Constraint{
			{Name: "limit", Type: ConstraintLimitRotation},
			{Name: IKTargetCustom, Subtarget: "hand"},
		}},
	}}
	if arm.Bone("arm") == nil || arm.Bone("leg") != nil {
		t.Error("Armature.Bone lookup failed")
	}
	c, ok := arm.Bone("arm").Constraint(IKTargetCustom)
	if !ok || c.Subtarget != "hand" {
		t.Errorf("expected custom target constraint, got %+v %v", c, ok)
	}
	if _, ok := arm.Bone("root").Constraint("x"); ok {
		t.Error("unexpected constraint on root")
	}

	m := &Mesh{VertexGroups: []string{"root", GroupEdgeScale}}
	if m.VertexGroup(GroupEdgeScale) != 1 || m.VertexGroup(GroupVertexOrder) != -1 {
		t.Error("Mesh.VertexGroup lookup failed")
	}
}
