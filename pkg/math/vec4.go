package math

import "github.com/chewxy/math32"

// Vec4 is a 4-component vector (colors, extended UVs).
type Vec4 struct {
	X, Y, Z, W float32
}

// Add returns v + other.
func (v Vec4) Add(other Vec4) Vec4 {
	return Vec4{v.X + other.X, v.Y + other.Y, v.Z + other.Z, v.W + other.W}
}

// Scale returns v * scalar.
func (v Vec4) Scale(s float32) Vec4 {
	return Vec4{v.X * s, v.Y * s, v.Z * s, v.W * s}
}

// Length returns the magnitude.
func (v Vec4) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z + v.W*v.W)
}

// MaxAbsDiff returns the largest per-component absolute difference.
func (v Vec4) MaxAbsDiff(other Vec4) float32 {
	d := math32.Abs(v.X - other.X)
	d = math32.Max(d, math32.Abs(v.Y-other.Y))
	d = math32.Max(d, math32.Abs(v.Z-other.Z))
	return math32.Max(d, math32.Abs(v.W-other.W))
}

// Index returns component i (0=X ... 3=W).
func (v Vec4) Index(i int) float32 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	default:
		return v.W
	}
}

// Set returns a copy of v with component i replaced.
func (v Vec4) Set(i int, f float32) Vec4 {
	switch i {
	case 0:
		v.X = f
	case 1:
		v.Y = f
	case 2:
		v.Z = f
	default:
		v.W = f
	}
	return v
}

// XY returns the first pair as a Vec2.
func (v Vec4) XY() Vec2 {
	return Vec2{v.X, v.Y}
}

// ZW returns the second pair as a Vec2.
func (v Vec4) ZW() Vec2 {
	return Vec2{v.Z, v.W}
}

// Vec4FromPairs packs two Vec2 into a Vec4.
func Vec4FromPairs(xy, zw Vec2) Vec4 {
	return Vec4{xy.X, xy.Y, zw.X, zw.Y}
}
