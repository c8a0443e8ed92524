package export

import (
	"github.com/Faultbox/pmxport/internal/scene"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

// buildDisplays resolves display frame items against the final bone and
// morph tables. Items that name nothing exported are dropped.
func buildDisplays(frames []*scene.DisplayFrame, bones *boneTable, morphs map[scene.MorphRef]int, diags *diagnostics) []pmx.Display {
	out := make([]pmx.Display, 0, len(frames))
	for _, f := range frames {
		d := pmx.Display{Name: f.Name, NameE: f.NameE, Special: f.Special}
		for _, it := range f.Items {
			if it.Morph {
				if i, ok := morphs[scene.MorphRef{Kind: it.MorphKind, Name: it.Name}]; ok {
					d.Items = append(d.Items, pmx.DisplayItem{IsMorph: true, Index: i})
					continue
				}
				diags.add(compDisplay, CodeDisplayItemMissing, f.Name, "%s %q", it.MorphKind, it.Name)
				continue
			}
			if i := bones.indexOf(it.Name); i >= 0 {
				d.Items = append(d.Items, pmx.DisplayItem{Index: i})
				continue
			}
			diags.add(compDisplay, CodeDisplayItemMissing, f.Name, "bone %q", it.Name)
		}
		out = append(out, d)
	}
	return out
}
