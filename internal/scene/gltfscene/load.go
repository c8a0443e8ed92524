// Package gltfscene reads a glTF 2.0 model and the YAML sidecar next to it
// into a scene the exporter can consume.
//
// Geometry, skins, morph targets and materials come from the glTF file.
// Everything MMD-specific (Japanese names, IK, morph metadata, display
// frames, physics) comes from <model>.pmx.yaml. Scalar custom vertex
// attributes named _<group> become vertex groups, which is how edge scale,
// vertex order and UV morph offsets reach the exporter.
package gltfscene

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/pmxport/internal/scene"
	pmath "github.com/Faultbox/pmxport/pkg/math"
)

// yUpToZUp rotates glTF's Y-up space into the Z-up space of the scene:
// (x, y, z) becomes (x, -z, y).
var yUpToZUp = pmath.Mat4{
	1, 0, 0, 0,
	0, 0, 1, 0,
	0, -1, 0, 0,
	0, 0, 0, 1,
}

const (
	primaryUVName     = "UVMap"
	basisKeyName      = "Basis"
	defaultTailLength = 0.1
	customAttrPrefix  = "_"
)

// Load opens a .gltf or .glb file and the sidecar next to it.
func Load(path string) (*scene.Static, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	side, err := LoadSidecar(path + SidecarSuffix)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Convert(doc, filepath.Dir(path), name, side)
}

// Convert builds a scene from a document. dir resolves relative image URIs
// and name is the object name of the model root. side may be nil, in which
// case the scene has no model root.
func Convert(doc *gltf.Document, dir, name string, side *Sidecar) (*scene.Static, error) {
	c := &converter{doc: doc, dir: dir, side: side}
	if c.side == nil {
		c.side = &Sidecar{}
	}
	if err := c.linkNodes(); err != nil {
		return nil, err
	}
	c.collectJoints()
	c.nameMaterials()

	out := &scene.Static{}
	arm, err := c.armature()
	if err != nil {
		return nil, err
	}
	out.Skeleton = arm

	for _, n := range c.nodeOrder() {
		if c.doc.Nodes[n].Mesh == nil {
			continue
		}
		m, err := c.mesh(n)
		if err != nil {
			return nil, err
		}
		out.MeshList = append(out.MeshList, m)
	}

	if out.Mats, err = c.materials(); err != nil {
		return nil, err
	}
	if side == nil {
		return out, nil
	}
	if err := c.metadata(out, name); err != nil {
		return nil, err
	}
	return out, nil
}

type converter struct {
	doc  *gltf.Document
	dir  string
	side *Sidecar

	parent     []int
	world      []mgl32.Mat4
	done       []bool
	joints     []uint32
	jointIndex map[uint32]int
	matNames   []string
}

// linkNodes records every node's parent and rejects malformed hierarchies.
func (c *converter) linkNodes() error {
	nodes := c.doc.Nodes
	c.parent = make([]int, len(nodes))
	c.world = make([]mgl32.Mat4, len(nodes))
	c.done = make([]bool, len(nodes))
	for i := range c.parent {
		c.parent[i] = -1
	}
	for i, n := range nodes {
		for _, ch := range n.Children {
			if int(ch) >= len(nodes) {
				return errors.Errorf("node %d: child %d out of range", i, ch)
			}
			if c.parent[ch] >= 0 {
				return errors.Errorf("node %d has more than one parent", ch)
			}
			c.parent[ch] = i
		}
	}
	for i := range nodes {
		steps := 0
		for p := c.parent[i]; p >= 0; p = c.parent[p] {
			if steps++; steps > len(nodes) {
				return errors.Errorf("node %d: hierarchy has a cycle", i)
			}
		}
	}
	return nil
}

// nodeOrder walks the default scene depth first. Documents without scenes
// walk every root node.
func (c *converter) nodeOrder() []uint32 {
	var roots []uint32
	switch {
	case c.doc.Scene != nil && int(*c.doc.Scene) < len(c.doc.Scenes):
		roots = c.doc.Scenes[*c.doc.Scene].Nodes
	case len(c.doc.Scenes) > 0:
		roots = c.doc.Scenes[0].Nodes
	default:
		for i, p := range c.parent {
			if p < 0 {
				roots = append(roots, uint32(i))
			}
		}
	}
	var order []uint32
	var walk func(n uint32)
	walk = func(n uint32) {
		if int(n) >= len(c.doc.Nodes) {
			return
		}
		order = append(order, n)
		for _, ch := range c.doc.Nodes[n].Children {
			walk(ch)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return order
}

func (c *converter) nodeName(n uint32) string {
	if name := c.doc.Nodes[n].Name; name != "" {
		return name
	}
	return fmt.Sprintf("node_%d", n)
}

func localMatrix(n *gltf.Node) mgl32.Mat4 {
	if m := mgl32.Mat4(n.Matrix); m != (mgl32.Mat4{}) && m != mgl32.Ident4() {
		return m
	}
	r := n.Rotation
	q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	if q.Len() == 0 {
		q = mgl32.QuatIdent()
	}
	s := n.Scale
	if s == [3]float32{} {
		s = [3]float32{1, 1, 1}
	}
	t := n.Translation
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(q.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

func (c *converter) worldMatrix(n int) mgl32.Mat4 {
	if c.done[n] {
		return c.world[n]
	}
	m := localMatrix(c.doc.Nodes[n])
	if p := c.parent[n]; p >= 0 {
		m = c.worldMatrix(p).Mul4(m)
	}
	c.world[n], c.done[n] = m, true
	return m
}

// collectJoints gathers the joints of every skin, first appearance wins.
func (c *converter) collectJoints() {
	c.jointIndex = make(map[uint32]int)
	for _, skin := range c.doc.Skins {
		for _, j := range skin.Joints {
			if int(j) >= len(c.doc.Nodes) {
				continue
			}
			if _, ok := c.jointIndex[j]; !ok {
				c.jointIndex[j] = len(c.joints)
				c.joints = append(c.joints, j)
			}
		}
	}
}

// parentJoint returns the closest ancestor of n that is a joint.
func (c *converter) parentJoint(n uint32) (uint32, bool) {
	for p := c.parent[n]; p >= 0; p = c.parent[p] {
		if _, ok := c.jointIndex[uint32(p)]; ok {
			return uint32(p), true
		}
	}
	return 0, false
}

func (c *converter) jointNames() []string {
	names := make([]string, len(c.joints))
	for i, j := range c.joints {
		names[i] = c.nodeName(j)
	}
	return names
}

func translation(m mgl32.Mat4) pmath.Vec3 {
	t := m.Col(3)
	return pmath.Vec3{X: t[0], Y: t[1], Z: t[2]}
}

// armature turns the joints into bones. Each bone is placed at its joint's
// rest position; the tail points at the first child joint or, for leaves,
// continues along the joint's Y axis.
func (c *converter) armature() (*scene.Armature, error) {
	if len(c.joints) == 0 {
		return nil, nil
	}
	arm := &scene.Armature{Name: "Armature", World: yUpToZUp}
	if name := c.doc.Skins[0].Name; name != "" {
		arm.Name = name
	}

	for i, j := range c.joints {
		w := c.worldMatrix(int(j))
		b := &scene.Bone{
			Name:         c.nodeName(j),
			BoneID:       i,
			Head:         translation(w),
			Matrix:       pmath.Mat4(w),
			RestMatrix:   pmath.Mat4(w),
			Controllable: true,
		}
		if p, ok := c.parentJoint(j); ok {
			b.Parent = c.nodeName(p)
		}

		child, hasChild := c.firstChildJoint(j)
		if hasChild {
			b.Tail = translation(c.worldMatrix(int(child)))
			b.DisplayConnection = scene.ConnectBone
			b.DisplayConnectionBone = c.nodeName(child)
		} else {
			length := float32(defaultTailLength)
			if p, ok := c.parentJoint(j); ok {
				if d := translation(c.worldMatrix(int(p))).Distance(b.Head); d > 0 {
					length = d
				}
			}
			dir := w.Mul4x1(mgl32.Vec4{0, 1, 0, 0}).Vec3()
			if dir.Len() > 0 {
				dir = dir.Normalize().Mul(length)
			}
			b.Tail = b.Head.Add(pmath.Vec3{X: dir[0], Y: dir[1], Z: dir[2]})
			b.DisplayConnection = scene.ConnectOffset
		}

		if info, ok := c.side.Bones[b.Name]; ok {
			applyBone(b, info)
		}
		arm.Bones = append(arm.Bones, b)
	}

	for name := range c.side.Bones {
		if arm.Bone(name) == nil {
			return nil, errors.Errorf("sidecar bone %q is not a joint", name)
		}
	}
	return arm, nil
}

func (c *converter) firstChildJoint(n uint32) (uint32, bool) {
	for _, ch := range c.doc.Nodes[n].Children {
		if _, ok := c.jointIndex[ch]; ok {
			return ch, true
		}
	}
	return 0, false
}

// meshBuilder accumulates the primitives of one glTF mesh.
type meshBuilder struct {
	m       *scene.Mesh
	corners int
	uvs     map[int][]pmath.Vec2
	colors  []pmath.Vec4
	hasCol  bool
	keys    []string
	deltas  map[string][]pmath.Vec3
}

func (c *converter) mesh(n uint32) (*scene.Mesh, error) {
	node := c.doc.Nodes[n]
	if int(*node.Mesh) >= len(c.doc.Meshes) {
		return nil, errors.Errorf("node %d: mesh %d out of range", n, *node.Mesh)
	}
	gm := c.doc.Meshes[*node.Mesh]
	name := node.Name
	if name == "" {
		name = gm.Name
	}
	if name == "" {
		name = fmt.Sprintf("mesh_%d", *node.Mesh)
	}

	b := &meshBuilder{
		m:      &scene.Mesh{Name: name, World: yUpToZUp},
		uvs:    make(map[int][]pmath.Vec2),
		deltas: make(map[string][]pmath.Vec3),
	}
	if node.Skin == nil {
		b.m.World = yUpToZUp.Mul(pmath.Mat4(c.worldMatrix(int(n))))
	}
	if len(c.joints) > 0 {
		b.m.VertexGroups = c.jointNames()
	}

	var jointMap []int
	if node.Skin != nil {
		if int(*node.Skin) >= len(c.doc.Skins) {
			return nil, errors.Errorf("node %d: skin %d out of range", n, *node.Skin)
		}
		for _, j := range c.doc.Skins[*node.Skin].Joints {
			jointMap = append(jointMap, c.jointIndex[j])
		}
	}
	rigidGroup := -1
	if node.Skin == nil {
		if p, ok := c.parentJoint(n); ok {
			rigidGroup = c.jointIndex[p]
		}
	}

	for pi, p := range gm.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			continue
		}
		names := targetNames(gm.Extras, p.Extras, len(p.Targets))
		if err := c.primitive(b, p, names, jointMap, rigidGroup); err != nil {
			return nil, errors.Wrapf(err, "mesh %q primitive %d", name, pi)
		}
	}
	b.finish()
	return b.m, nil
}

func (c *converter) primitive(b *meshBuilder, p *gltf.Primitive, keyNames []string, jointMap []int, rigidGroup int) error {
	posAcr, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return errors.New("no POSITION attribute")
	}
	acr, err := c.accessor(posAcr)
	if err != nil {
		return errors.Wrap(err, "POSITION")
	}
	positions, err := modeler.ReadPosition(c.doc, acr, nil)
	if err != nil {
		return errors.Wrap(err, "reading positions")
	}
	base := len(b.m.Vertices)
	for _, pos := range positions {
		v := scene.Vertex{Co: pmath.FromArray(pos)}
		if rigidGroup >= 0 {
			v.Groups = []scene.GroupWeight{{Group: rigidGroup, Weight: 1}}
		}
		b.m.Vertices = append(b.m.Vertices, v)
	}

	var normals [][3]float32
	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		if acr, err = c.accessor(idx); err != nil {
			return errors.Wrap(err, "NORMAL")
		}
		if normals, err = modeler.ReadNormal(c.doc, acr, nil); err != nil {
			return errors.Wrap(err, "reading normals")
		}
	}

	var uvs [][][2]float32
	for k := 0; ; k++ {
		idx, ok := p.Attributes[fmt.Sprintf("TEXCOORD_%d", k)]
		if !ok {
			break
		}
		acr, err := c.accessor(idx)
		if err != nil {
			return errors.Wrapf(err, "TEXCOORD_%d", k)
		}
		layer, err := modeler.ReadTextureCoord(c.doc, acr, nil)
		if err != nil {
			return errors.Wrapf(err, "reading TEXCOORD_%d", k)
		}
		uvs = append(uvs, layer)
	}

	var colors [][4]uint16
	if idx, ok := p.Attributes[gltf.COLOR_0]; ok {
		if acr, err = c.accessor(idx); err != nil {
			return errors.Wrap(err, "COLOR_0")
		}
		if colors, err = modeler.ReadColor64(c.doc, acr, nil); err != nil {
			return errors.Wrap(err, "reading colors")
		}
	}

	if err := c.skinWeights(b, p, base, jointMap); err != nil {
		return err
	}
	if err := c.customGroups(b, p, base); err != nil {
		return err
	}
	if err := c.morphTargets(b, p, base, len(positions), keyNames); err != nil {
		return err
	}

	var indices []uint32
	if p.Indices != nil {
		if acr, err = c.accessor(*p.Indices); err != nil {
			return errors.Wrap(err, "indices")
		}
		if indices, err = modeler.ReadIndices(c.doc, acr, nil); err != nil {
			return errors.Wrap(err, "reading indices")
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	slot := c.slot(b.m, p.Material)
	for f := 0; f+2 < len(indices); f += 3 {
		tri := [3]uint32{indices[f], indices[f+1], indices[f+2]}
		face := scene.Face{Material: slot}
		for k, idx := range tri {
			if int(idx) >= len(positions) {
				return errors.Errorf("index %d out of range", idx)
			}
			face.Vertices[k] = base + int(idx)
		}
		for k, idx := range tri {
			if int(idx) < len(normals) {
				face.Normals[k] = pmath.FromArray(normals[idx])
			} else {
				face.Normals[k] = faceNormal(b.m, face)
			}
		}
		b.m.Faces = append(b.m.Faces, face)

		for layer, data := range uvs {
			for _, idx := range tri {
				var uv pmath.Vec2
				if int(idx) < len(data) {
					uv = pmath.Vec2{X: data[idx][0], Y: 1 - data[idx][1]}
				}
				b.addUV(layer, uv)
			}
		}
		for _, idx := range tri {
			col := pmath.Vec4{X: 1, Y: 1, Z: 1, W: 1}
			if int(idx) < len(colors) {
				col = colorOf(colors[idx])
			}
			b.colors = append(b.colors, col)
		}
		b.corners += 3
	}
	if len(colors) > 0 {
		b.hasCol = true
	}
	return nil
}

// accessor returns accessor i, or an error when the document has no such
// accessor.
func (c *converter) accessor(i uint32) (*gltf.Accessor, error) {
	if int(i) >= len(c.doc.Accessors) || c.doc.Accessors[i] == nil {
		return nil, errors.Errorf("accessor %d out of range (%d accessors)", i, len(c.doc.Accessors))
	}
	return c.doc.Accessors[i], nil
}

func colorOf(c [4]uint16) pmath.Vec4 {
	const max = 65535
	return pmath.Vec4{X: float32(c[0]) / max, Y: float32(c[1]) / max, Z: float32(c[2]) / max, W: float32(c[3]) / max}
}

func faceNormal(m *scene.Mesh, f scene.Face) pmath.Vec3 {
	a := m.Vertices[f.Vertices[0]].Co
	b := m.Vertices[f.Vertices[1]].Co
	c := m.Vertices[f.Vertices[2]].Co
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}

// skinWeights maps JOINTS_0/WEIGHTS_0 onto the joint vertex groups.
func (c *converter) skinWeights(b *meshBuilder, p *gltf.Primitive, base int, jointMap []int) error {
	wAcr, okW := p.Attributes[gltf.WEIGHTS_0]
	jAcr, okJ := p.Attributes[gltf.JOINTS_0]
	if !okW || !okJ || jointMap == nil {
		return nil
	}
	wa, err := c.accessor(wAcr)
	if err != nil {
		return errors.Wrap(err, "WEIGHTS_0")
	}
	ja, err := c.accessor(jAcr)
	if err != nil {
		return errors.Wrap(err, "JOINTS_0")
	}
	weights, err := modeler.ReadWeights(c.doc, wa, nil)
	if err != nil {
		return errors.Wrap(err, "reading weights")
	}
	joints, err := modeler.ReadJoints(c.doc, ja, nil)
	if err != nil {
		return errors.Wrap(err, "reading joints")
	}
	for i := range weights {
		if i >= len(joints) || base+i >= len(b.m.Vertices) {
			break
		}
		v := &b.m.Vertices[base+i]
		for k, w := range weights[i] {
			if w <= 0 {
				continue
			}
			j := int(joints[i][k])
			if j >= len(jointMap) {
				return errors.Errorf("vertex %d: joint %d out of range", i, j)
			}
			v.Groups = append(v.Groups, scene.GroupWeight{Group: jointMap[j], Weight: w})
		}
	}
	return nil
}

// customGroups turns scalar float attributes such as _mmd_edge_scale into
// vertex groups.
func (c *converter) customGroups(b *meshBuilder, p *gltf.Primitive, base int) error {
	var names []string
	for name := range p.Attributes {
		if strings.HasPrefix(name, customAttrPrefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		acr, err := c.accessor(p.Attributes[name])
		if err != nil {
			return errors.Wrap(err, name)
		}
		data, err := modeler.ReadAccessor(c.doc, acr, nil)
		if err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}
		values, ok := data.([]float32)
		if !ok {
			continue
		}
		group := strings.TrimPrefix(name, customAttrPrefix)
		gi := b.m.VertexGroup(group)
		if gi < 0 {
			gi = len(b.m.VertexGroups)
			b.m.VertexGroups = append(b.m.VertexGroups, group)
		}
		for i, w := range values {
			if w == 0 || base+i >= len(b.m.Vertices) {
				continue
			}
			v := &b.m.Vertices[base+i]
			v.Groups = append(v.Groups, scene.GroupWeight{Group: gi, Weight: w})
		}
	}
	return nil
}

// morphTargets records the position deltas of every target by name.
func (c *converter) morphTargets(b *meshBuilder, p *gltf.Primitive, base, count int, names []string) error {
	for ti, target := range p.Targets {
		idx, ok := target[gltf.POSITION]
		if !ok {
			continue
		}
		acr, err := c.accessor(idx)
		if err != nil {
			return errors.Wrapf(err, "target %d", ti)
		}
		deltas, err := modeler.ReadPosition(c.doc, acr, nil)
		if err != nil {
			return errors.Wrapf(err, "reading target %d", ti)
		}
		name := names[ti]
		d, seen := b.deltas[name]
		if !seen {
			b.keys = append(b.keys, name)
		}
		for len(d) < base+count {
			d = append(d, pmath.Vec3{})
		}
		for i := 0; i < count && i < len(deltas); i++ {
			d[base+i] = pmath.FromArray(deltas[i])
		}
		b.deltas[name] = d
	}
	return nil
}

// targetNames reads extras.targetNames from the primitive, then the mesh.
func targetNames(meshExtras, primExtras any, count int) []string {
	names := make([]string, count)
	for i := range names {
		names[i] = fmt.Sprintf("target_%03d", i)
	}
	for _, extras := range []any{meshExtras, primExtras} {
		m, ok := extras.(map[string]any)
		if !ok {
			continue
		}
		var list []string
		switch v := m["targetNames"].(type) {
		case []any:
			for _, s := range v {
				str, _ := s.(string)
				list = append(list, str)
			}
		case []string:
			list = v
		}
		for i := 0; i < count && i < len(list); i++ {
			if s := strings.TrimSpace(list[i]); s != "" {
				names[i] = s
			}
		}
	}
	return names
}

func (b *meshBuilder) addUV(layer int, uv pmath.Vec2) {
	data := b.uvs[layer]
	for len(data) < b.corners {
		data = append(data, pmath.Vec2{})
	}
	b.uvs[layer] = append(data, uv)
}

// finish pads per-corner and per-vertex data to full length and builds
// the shape keys.
func (b *meshBuilder) finish() {
	for layer := 0; layer < len(b.uvs); layer++ {
		data := b.uvs[layer]
		for len(data) < b.corners {
			data = append(data, pmath.Vec2{})
		}
		name := primaryUVName
		if layer > 0 {
			name = fmt.Sprintf("%s.%03d", primaryUVName, layer)
		}
		b.m.UVLayers = append(b.m.UVLayers, scene.UVLayer{Name: name, Data: data})
	}
	if b.hasCol {
		b.m.Colors = b.colors
	}
	if len(b.keys) == 0 {
		return
	}
	basis := make([]pmath.Vec3, len(b.m.Vertices))
	for i, v := range b.m.Vertices {
		basis[i] = v.Co
	}
	b.m.ShapeKeys = append(b.m.ShapeKeys, scene.ShapeKey{Name: basisKeyName, Positions: basis})
	for _, name := range b.keys {
		d := b.deltas[name]
		pos := make([]pmath.Vec3, len(basis))
		for i := range pos {
			pos[i] = basis[i]
			if i < len(d) {
				pos[i] = pos[i].Add(d[i])
			}
		}
		b.m.ShapeKeys = append(b.m.ShapeKeys, scene.ShapeKey{Name: name, Positions: pos})
	}
}

// slot returns the material slot of a primitive, adding it on first use.
func (c *converter) slot(m *scene.Mesh, material *uint32) int {
	name := ""
	if material != nil && int(*material) < len(c.matNames) {
		name = c.matNames[*material]
	}
	for i, s := range m.MaterialSlots {
		if s == name {
			return i
		}
	}
	m.MaterialSlots = append(m.MaterialSlots, name)
	return len(m.MaterialSlots) - 1
}

// nameMaterials gives every material a unique name.
func (c *converter) nameMaterials() {
	seen := make(map[string]int)
	c.matNames = make([]string, len(c.doc.Materials))
	for i, m := range c.doc.Materials {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("material_%d", i)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%03d", name, n)
		} else {
			seen[name] = 1
		}
		c.matNames[i] = name
	}
}

func (c *converter) materials() ([]*scene.Material, error) {
	var out []*scene.Material
	for i, gm := range c.doc.Materials {
		m := &scene.Material{
			Name:          c.matNames[i],
			Diffuse:       pmath.Vec3{X: 1, Y: 1, Z: 1},
			Alpha:         1,
			Ambient:       pmath.Vec3{X: 0.4, Y: 0.4, Z: 0.4},
			Specular:      pmath.Vec3{X: 0.625, Y: 0.625, Z: 0.625},
			Shininess:     50,
			DoubleSided:   gm.DoubleSided,
			DropShadow:    true,
			SelfShadowMap: true,
			SelfShadow:    true,
			EdgeColor:     pmath.Vec4{W: 1},
			EdgeWeight:    1,
		}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			base := pbr.BaseColorFactorOrDefault()
			m.Diffuse = pmath.Vec3{X: base[0], Y: base[1], Z: base[2]}
			if gm.AlphaMode != gltf.AlphaOpaque {
				m.Alpha = base[3]
			}
			if pbr.BaseColorTexture != nil {
				m.Texture = c.texturePath(pbr.BaseColorTexture.Index)
			}
		}
		if info, ok := c.side.Materials[m.Name]; ok {
			applyMaterial(m, info, c.dir)
		}
		out = append(out, m)
	}
	for name := range c.side.Materials {
		if indexOf(c.matNames, name) < 0 {
			return nil, errors.Errorf("sidecar material %q not found", name)
		}
	}
	return out, nil
}

// texturePath resolves the image behind a texture to an absolute path.
// Embedded images have no path and are skipped.
func (c *converter) texturePath(tex uint32) string {
	if int(tex) >= len(c.doc.Textures) {
		return ""
	}
	src := c.doc.Textures[tex].Source
	if src == nil || int(*src) >= len(c.doc.Images) {
		return ""
	}
	uri := c.doc.Images[*src].URI
	if uri == "" || strings.HasPrefix(uri, "data:") {
		return ""
	}
	if u, err := url.PathUnescape(uri); err == nil {
		uri = u
	}
	return resolvePath(c.dir, uri)
}

func resolvePath(dir, p string) string {
	if p == "" {
		return ""
	}
	p = filepath.FromSlash(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	return p
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
