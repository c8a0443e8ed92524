package export

import (
	pmath "github.com/Faultbox/pmxport/pkg/math"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

// Strategy selects how corners that share a source vertex are merged.
type Strategy int

const (
	// Average merges on UV only and blends normals and colors.
	Average Strategy = iota
	// Split keeps a separate vertex per distinct UV, normal and color.
	Split
)

func (s Strategy) String() string {
	if s == Split {
		return "split"
	}
	return "average"
}

// Equality thresholds. These are part of the output contract.
const (
	uvEpsilon     = 0.001
	normalEpsilon = 0.01
	colorEpsilon  = 0.01
	ripEpsilon    = 0.001
)

// source holds the data of a mesh vertex that every indexed copy shares.
type source struct {
	id        int
	co        pmath.Vec3
	groups    []Influence
	offsets   map[string]pmath.Vec3 // shape key name -> offset
	uvOffsets map[string]pmath.Vec4 // UV morph name -> raw offset
	sdef      *SDEF
	edgeScale float32
	order     sortKey
}

type auxUV struct {
	uv pmath.Vec2
	zw pmath.Vec2
}

type average struct {
	normals []pmath.Vec3
	colors  []pmath.Vec4
	weights []float32
}

// vertex is an indexed vertex under construction.
type vertex struct {
	src    *source
	index  int // -1 until emitted
	hasUV  bool
	uv     pmath.Vec2
	normal pmath.Vec3
	color  *pmath.Vec4
	aux    [pmx.MaxAddUV]*auxUV
	avg    *average
}

func (v *vertex) clone() *vertex {
	n := *v
	n.index = -1
	n.avg = nil
	return &n
}

// consolidator turns face corners into indexed vertices.
type consolidator struct {
	strategy Strategy
	copies   [][]*vertex // indexed by source id; [0] is the base vertex
}

func newConsolidator(strategy Strategy, sources []*source) *consolidator {
	c := &consolidator{strategy: strategy, copies: make([][]*vertex, len(sources))}
	for i, s := range sources {
		c.copies[i] = []*vertex{{src: s, index: -1}}
	}
	return c
}

// resolve returns the indexed vertex for one face corner, creating a copy of
// the source vertex when no existing copy matches.
func (c *consolidator) resolve(id int, uv pmath.Vec2, normal pmath.Vec3, color *pmath.Vec4, area, angle float32) *vertex {
	if c.strategy == Split {
		return c.split(id, uv, normal, color)
	}
	return c.average(id, uv, normal, color, area, angle)
}

func (c *consolidator) split(id int, uv pmath.Vec2, normal pmath.Vec3, color *pmath.Vec4) *vertex {
	list := c.copies[id]
	for _, v := range list {
		if !v.hasUV {
			v.hasUV = true
			v.uv, v.normal, v.color = uv, normal, color
			return v
		}
		if v.uv.Distance(uv) < uvEpsilon && v.normal.Distance(normal) < normalEpsilon &&
			colorDiff(v.color, color) < colorEpsilon {
			return v
		}
	}
	n := list[0].clone()
	n.uv, n.normal, n.color = uv, normal, color
	c.copies[id] = append(list, n)
	return n
}

func (c *consolidator) average(id int, uv pmath.Vec2, normal pmath.Vec3, color *pmath.Vec4, area, angle float32) *vertex {
	var v *vertex
	for _, cand := range c.copies[id] {
		if !cand.hasUV {
			cand.hasUV = true
			cand.uv = uv
			v = cand
			break
		}
		if cand.uv.Distance(uv) < uvEpsilon {
			v = cand
			break
		}
	}
	if v == nil {
		v = c.copies[id][0].clone()
		v.uv = uv
		c.copies[id] = append(c.copies[id], v)
	}

	var col pmath.Vec4
	if color != nil {
		col = *color
	}
	if v.avg == nil {
		v.avg = &average{}
	}
	a := v.avg
	a.normals = append(a.normals, normal)
	a.colors = append(a.colors, col)
	a.weights = append(a.weights, angle*area)

	var total float32
	for _, w := range a.weights {
		total += w
	}
	if total == 0 {
		total = 1
	}

	if allEqual(a.normals) {
		v.normal = normal
	} else {
		var sum pmath.Vec3
		for i, n := range a.normals {
			sum = sum.Add(n.Scale(a.weights[i]))
		}
		v.normal = sum.Scale(1 / total).Normalize()
	}

	final := col
	if !allEqual(a.colors) {
		var sum pmath.Vec4
		for i, cl := range a.colors {
			sum = sum.Add(cl.Scale(a.weights[i]))
		}
		final = sum.Scale(1 / total)
	}
	v.color = colorOrNil(final)
	return v
}

// rip places an auxiliary UV pair on v. When the slot already holds another
// value, a copy is made; rips lists the copies made for v in this layer.
func (c *consolidator) rip(v *vertex, slot int, uv, zw pmath.Vec2, rips []*vertex) (*vertex, []*vertex) {
	if v.aux[slot] == nil {
		v.aux[slot] = &auxUV{uv: uv, zw: zw}
		return v, rips
	}
	for _, r := range rips {
		a := r.aux[slot]
		if a.uv.Distance(uv) < ripEpsilon && a.zw.Distance(zw) < ripEpsilon {
			return r, rips
		}
	}
	n := v.clone()
	n.aux[slot] = &auxUV{uv: uv, zw: zw}
	c.copies[v.src.id] = append(c.copies[v.src.id], n)
	return n, append(rips, n)
}

// colorDiff is the largest channel difference; absent against present
// counts as fully different.
func colorDiff(a, b *pmath.Vec4) float32 {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil || b == nil:
		return 1
	}
	return a.MaxAbsDiff(*b)
}

// colorOrNil treats a zero-length color as absent.
func colorOrNil(c pmath.Vec4) *pmath.Vec4 {
	if c.Length() == 0 {
		return nil
	}
	return &c
}

func allEqual[T comparable](xs []T) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
