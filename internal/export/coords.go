package export

import (
	"github.com/chewxy/math32"

	pmath "github.com/Faultbox/pmxport/pkg/math"
)

// pmxMatrix maps object space into PMX space: scale into PMX units, then
// swap the Y and Z axes. The swap flips handedness, so for an ordinary
// world matrix the result is negative.
func pmxMatrix(world pmath.Mat4, scale float32) pmath.Mat4 {
	return world.ScaleUniform(scale).SwapYZRows()
}

// normalMatrix returns the matrix for corner normals. Non-uniform object
// scale is divided out twice: once to undo the scale, once for the inverse
// transpose.
func normalMatrix(world pmath.Mat4, pmx pmath.Mat4) pmath.Mat3 {
	m := pmx.Mat3()
	_, _, s := world.Decompose()
	if s.X == s.Y && s.Y == s.Z {
		return m
	}
	inv := pmath.Mat3{{1 / s.X, 0, 0}, {0, 1 / s.Y, 0}, {0, 0, 1 / s.Z}}
	return m.Mul(inv).Mul(inv)
}

// boneAxis converts a bone-local axis to PMX space through the bone's
// pose delta.
func boneAxis(pmx pmath.Mat4, bone poseMatrices, axis pmath.Vec3) pmath.Vec3 {
	delta := bone.pose.Mul(bone.rest.Inverse()).Mat3()
	return pmx.Mat3().Mul(delta).MulVec3(axis.XZY()).Normalize()
}

type poseMatrices struct {
	pose pmath.Mat4
	rest pmath.Mat4
}

// convertIKLimits maps per-axis IK limits from bone space into PMX space.
// The bone matrix is snapped to the nearest signed axis permutation so every
// limit lands on exactly one PMX axis.
func convertIKLimits(min, max pmath.Vec3, boneMatrix pmath.Mat4) (pmath.Vec3, pmath.Vec3) {
	mat := boneMatrix.Mat3().Scale(-1).SwapYZRows().Transpose().Inverse()

	var m pmath.Mat3
	rows := []int{0, 1, 2}
	cols := []int{0, 1, 2}
	for n := 0; n < 3; n++ {
		bi, bj := 0, 0
		ii, jj := rows[0], cols[0]
		for ri, i := range rows {
			for ci, j := range cols {
				if math32.Abs(mat[i][j]) > math32.Abs(mat[ii][jj]) {
					ii, jj = i, j
					bi, bj = ri, ci
				}
			}
		}
		rows = append(rows[:bi], rows[bi+1:]...)
		cols = append(cols[:bj], cols[bj+1:]...)
		if mat[ii][jj] < 0 {
			m[ii][jj] = -1
		} else {
			m[ii][jj] = 1
		}
	}

	lo := m.MulVec3(min)
	hi := m.MulVec3(max)
	for i := 0; i < 3; i++ {
		a, b := lo.Index(i), hi.Index(i)
		if a > b {
			lo, hi = setIndex(lo, i, b), setIndex(hi, i, a)
		}
	}
	return lo, hi
}

func setIndex(v pmath.Vec3, i int, f float32) pmath.Vec3 {
	switch i {
	case 0:
		v.X = f
	case 1:
		v.Y = f
	default:
		v.Z = f
	}
	return v
}

// boneConverter converts bone morph poses from bone space into PMX space.
type boneConverter struct {
	mat   pmath.Mat3
	scale float32
}

func newBoneConverter(world, rest pmath.Mat4, scale float32) boneConverter {
	m := world.Mul(rest).Mat3().SwapYZRows().Transpose().Inverse()
	return boneConverter{mat: m, scale: scale}
}

func (c boneConverter) location(loc pmath.Vec3) pmath.Vec3 {
	return c.mat.MulVec3(loc).Scale(c.scale)
}

func (c boneConverter) rotation(q pmath.Quat) pmath.Quat {
	axis, angle := q.Normalize().AxisAngle()
	return pmath.QuatFromAxisAngle(c.mat.MulVec3(axis).Scale(-1).Normalize(), angle).Normalize()
}
