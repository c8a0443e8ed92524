package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	length := float32(math.Sqrt(float64(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)))
	if math.Abs(float64(length-1.0)) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatAxisAngleRoundTrip(t *testing.T) {
	axis := Vec3{0, 0, 1}
	q := QuatFromAxisAngle(axis, float32(math.Pi/3))
	gotAxis, gotAngle := q.AxisAngle()
	if abs(gotAngle-float32(math.Pi/3)) > 0.0001 {
		t.Errorf("angle = %v, want %v", gotAngle, math.Pi/3)
	}
	if gotAxis.Distance(axis) > 0.0001 {
		t.Errorf("axis = %v, want %v", gotAxis, axis)
	}
}

func TestQuatMat3RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		axis  Vec3
		angle float32
	}{
		{"x 90", Vec3{1, 0, 0}, float32(math.Pi / 2)},
		{"y 45", Vec3{0, 1, 0}, float32(math.Pi / 4)},
		{"z 170", Vec3{0, 0, 1}, float32(math.Pi * 170 / 180)},
		{"diag", Vec3{1, 1, 1}.Normalize(), 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := QuatFromAxisAngle(tt.axis, tt.angle)
			back := QuatFromMat3(q.Mat3())
			if d := abs(q.Dot(back)); d < 0.9999 {
				t.Errorf("round trip mismatch: %v vs %v", q, back)
			}
		})
	}
}

func TestQuatMat3RotatesVector(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 0, 1}, float32(math.Pi/2))
	got := q.Mat3().MulVec3(Vec3{1, 0, 0})
	if got.Distance(Vec3{0, 1, 0}) > 0.0001 {
		t.Errorf("rotating X by 90 around Z = %v, want (0,1,0)", got)
	}
}
