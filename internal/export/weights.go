package export

import (
	"sort"

	pmath "github.com/Faultbox/pmxport/pkg/math"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

// Influence is one bone's share of a vertex.
type Influence struct {
	Bone   int
	Weight float32
}

// SDEF is the spherical deformation correction of a two-bone vertex, in
// PMX space.
type SDEF struct {
	C  pmath.Vec3
	R0 pmath.Vec3
	R1 pmath.Vec3
}

// EncodeWeights picks the skinning scheme for a vertex:
//
//	0 influences  BDEF1 on bone 0
//	1 influence   BDEF1
//	2 influences  BDEF2, or SDEF when sdef is set
//	more          BDEF4 with the four heaviest influences renormalized
//
// The input slice is not modified.
func EncodeWeights(influences []Influence, sdef *SDEF) pmx.BoneWeight {
	var w pmx.BoneWeight
	switch len(influences) {
	case 0:
		w.Type = pmx.BDEF1
		w.Weights[0] = 1
	case 1:
		w.Type = pmx.BDEF1
		w.Bones[0] = influences[0].Bone
		w.Weights[0] = 1
	case 2:
		a, b := influences[0], influences[1]
		w.Type = pmx.BDEF2
		w.Bones[0], w.Bones[1] = a.Bone, b.Bone
		w.Weights[0] = a.Weight / (a.Weight + b.Weight)
		if sdef != nil {
			w.Type = pmx.SDEF
			w.C, w.R0, w.R1 = sdef.C, sdef.R0, sdef.R1
			if w.Bones[0] > w.Bones[1] {
				w.Bones[0], w.Bones[1] = w.Bones[1], w.Bones[0]
				w.Weights[0] = 1 - w.Weights[0]
				w.R0, w.R1 = w.R1, w.R0
			}
		}
		w.Weights[1] = 1 - w.Weights[0]
	default:
		w.Type = pmx.BDEF4
		infl := influences
		if len(infl) > 4 {
			infl = append([]Influence(nil), influences...)
			sort.SliceStable(infl, func(i, j int) bool { return infl[i].Weight > infl[j].Weight })
			infl = infl[:4]
		}
		var total float32
		for i, in := range infl {
			w.Bones[i] = in.Bone
			w.Weights[i] = in.Weight
			total += in.Weight
		}
		if total > 0 {
			for i := range w.Weights {
				w.Weights[i] /= total
			}
		}
	}
	return w
}
