package math

import "github.com/chewxy/math32"

// Mat3 is a 3x3 matrix indexed as m[row][col].
type Mat3 [3][3]float32

// Identity3 returns an identity matrix.
func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Mul returns m * other.
func (m Mat3) Mul(other Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][0]*other[0][j] + m[i][1]*other[1][j] + m[i][2]*other[2][j]
		}
	}
	return r
}

// MulVec3 returns m * v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Scale returns every element multiplied by s.
func (m Mat3) Scale(s float32) Mat3 {
	for i := range m {
		for j := range m[i] {
			m[i][j] *= s
		}
	}
	return m
}

// Transpose returns the transposed matrix.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		{m[0][0], m[1][0], m[2][0]},
		{m[0][1], m[1][1], m[2][1]},
		{m[0][2], m[1][2], m[2][2]},
	}
}

// SwapYZRows exchanges the second and third rows.
func (m Mat3) SwapYZRows() Mat3 {
	m[1], m[2] = m[2], m[1]
	return m
}

// Determinant returns det(m).
func (m Mat3) Determinant() float32 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Inverse returns the inverse of the matrix.
// Returns identity if the matrix is singular.
func (m Mat3) Inverse() Mat3 {
	det := m.Determinant()
	if math32.Abs(det) < 1e-12 {
		return Identity3()
	}
	inv := 1 / det
	return Mat3{
		{
			(m[1][1]*m[2][2] - m[1][2]*m[2][1]) * inv,
			(m[0][2]*m[2][1] - m[0][1]*m[2][2]) * inv,
			(m[0][1]*m[1][2] - m[0][2]*m[1][1]) * inv,
		},
		{
			(m[1][2]*m[2][0] - m[1][0]*m[2][2]) * inv,
			(m[0][0]*m[2][2] - m[0][2]*m[2][0]) * inv,
			(m[0][2]*m[1][0] - m[0][0]*m[1][2]) * inv,
		},
		{
			(m[1][0]*m[2][1] - m[1][1]*m[2][0]) * inv,
			(m[0][1]*m[2][0] - m[0][0]*m[2][1]) * inv,
			(m[0][0]*m[1][1] - m[0][1]*m[1][0]) * inv,
		},
	}
}

// EulerYXZ decomposes a rotation matrix built as Rz * Rx * Ry and returns
// the angles (x, y, z) in radians.
func (m Mat3) EulerYXZ() Vec3 {
	sx := m[2][1]
	if sx > 1 {
		sx = 1
	} else if sx < -1 {
		sx = -1
	}
	x := math32.Asin(sx)
	if math32.Abs(sx) < 0.99999 {
		return Vec3{
			X: x,
			Y: math32.Atan2(-m[2][0], m[2][2]),
			Z: math32.Atan2(-m[0][1], m[1][1]),
		}
	}
	// gimbal lock: fold the Y rotation into Z
	return Vec3{X: x, Y: 0, Z: math32.Atan2(m[1][0], m[0][0])}
}
