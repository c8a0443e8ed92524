package export

import "testing"

func TestDiagnostics(t *testing.T) {
	var ds diagnostics
	ds.add(compMaterials, CodeTextureMissing, "a.png", "")
	ds.add(compMorphs, CodeGroupMorphUnresolved, "combo", "%s %q was not found", "bone", "x")
	ds.add(compMaterials, CodeTextureMissing, "b.png", "")

	counts := CountByCode(ds)
	if counts[CodeTextureMissing] != 2 || counts[CodeGroupMorphUnresolved] != 1 || len(counts) != 2 {
		t.Errorf("CountByCode = %v", counts)
	}
	tests := []struct {
		d    Diagnostic
		want string
	}{
		{ds[0], "materials: texture_missing (a.png)"},
		{ds[1], `morphs: group_morph_unresolved (combo): bone "x" was not found`},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
