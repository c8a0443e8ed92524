// Package export converts a scene into an in-memory PMX model.
package export

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/pmxport/internal/scene"
	"github.com/Faultbox/pmxport/pkg/encoding"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

// VertexSort selects the final vertex order.
type VertexSort string

const (
	SortNone    VertexSort = "NONE"
	SortBlender VertexSort = "BLENDER"
	SortCustom  VertexSort = "CUSTOM"
)

// Model metadata written when the scene has no model root.
const (
	defaultModelName    = "pmxport"
	defaultModelComment = "exported by pmxport"
)

// Options controls one export.
type Options struct {
	Scale           float32
	VertexSplitting bool
	IKAngleLimits   IKLimitPolicy
	SortMaterials   bool
	SortVertices    VertexSort
	DisableSpecular bool
	IKLoopFactor    int

	// ProbeTextures decodes texture headers instead of only checking that
	// the files exist.
	ProbeTextures bool
	// TextureBase makes texture paths relative to it when set.
	TextureBase string

	Logger *zap.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Scale:         12.5,
		IKAngleLimits: IKLimitsExportAll,
		SortVertices:  SortNone,
		IKLoopFactor:  1,
		ProbeTextures: true,
	}
}

// Serializer writes a finished model.
type Serializer interface {
	Serialize(w io.Writer, m *pmx.Model, addUVCount int) error
}

// Stats compares the scene with the exported model.
type Stats struct {
	SourceVertices int
	SourceFaces    int
	Vertices       int
	Faces          int
	Materials      int
	Bones          int
	Morphs         int
}

// Result is a finished export.
type Result struct {
	Model       *pmx.Model
	AddUVCount  int
	Diagnostics []Diagnostic
	Stats       Stats
}

// Assembler runs the export stages in dependency order. It keeps no state
// between runs.
type Assembler struct {
	opts Options
	log  *zap.Logger
}

// NewAssembler creates an assembler. Zero option values fall back to
// DefaultOptions.
func NewAssembler(opts Options) *Assembler {
	def := DefaultOptions()
	if opts.Scale == 0 {
		opts.Scale = def.Scale
	}
	if opts.IKAngleLimits == "" {
		opts.IKAngleLimits = def.IKAngleLimits
	}
	if opts.SortVertices == "" {
		opts.SortVertices = def.SortVertices
	}
	if opts.IKLoopFactor < 1 {
		opts.IKLoopFactor = def.IKLoopFactor
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{opts: opts, log: log}
}

// Export builds the model and hands it to s. Nothing is written when the
// build fails.
func (a *Assembler) Export(ctx context.Context, q scene.Query, s Serializer, w io.Writer) (*Result, error) {
	res, err := a.Build(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.Serialize(w, res.Model, res.AddUVCount); err != nil {
		return nil, fmt.Errorf("serializing model: %w", err)
	}
	return res, nil
}

// run is the state of one Build call.
type run struct {
	opts  *Options
	q     scene.Query
	log   *zap.Logger
	diags diagnostics
	model *pmx.Model

	root      *scene.Root
	arm       *scene.Armature
	bones     *boneTable
	meshes    []*loadedMesh
	emitted   []*vertex
	materials *materialTable
	addUV     int
	morphs    map[scene.MorphRef]int
}

// Build converts the scene. A cancelled context aborts between stages and
// discards everything built so far.
func (a *Assembler) Build(ctx context.Context, q scene.Query) (*Result, error) {
	opts := a.opts
	r := &run{opts: &opts, q: q, log: a.log, model: &pmx.Model{}}
	stages := []struct {
		name string
		fn   func() error
	}{
		{"model", r.header},
		{compBones, r.buildBones},
		{compMeshes, r.buildMeshes},
		{compMaterials, r.buildMaterials},
		{compMorphs, r.buildMorphs},
		{compDisplay, r.buildDisplays},
		{compRigid, r.buildPhysics},
	}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := st.fn(); err != nil {
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
		a.log.Debug("stage done", zap.String("stage", st.name))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, d := range r.diags {
		a.log.Warn(d.Code,
			zap.String("component", d.Component),
			zap.String("code", d.Code),
			zap.String("subject", d.Subject),
			zap.String("detail", d.Detail),
		)
	}

	res := &Result{
		Model:       r.model,
		AddUVCount:  r.addUV,
		Diagnostics: r.diags,
		Stats: Stats{
			Vertices:  len(r.model.Vertices),
			Faces:     len(r.model.Faces),
			Materials: len(r.model.Materials),
			Bones:     len(r.model.Bones),
			Morphs:    len(r.model.Morphs),
		},
	}
	for _, m := range r.meshes {
		res.Stats.SourceVertices += m.sourceVerts
		res.Stats.SourceFaces += m.sourceFaces
	}
	a.log.Info("export finished",
		zap.Bool("vertexSplitting", a.opts.VertexSplitting),
		zap.Int("sourceVertices", res.Stats.SourceVertices),
		zap.Int("vertices", res.Stats.Vertices),
		zap.Int("sourceFaces", res.Stats.SourceFaces),
		zap.Int("faces", res.Stats.Faces),
		zap.Int("diagnostics", len(r.diags)),
	)
	return res, nil
}

func (r *run) header() error {
	root, err := r.q.Root()
	if err != nil {
		return fmt.Errorf("reading root: %w", err)
	}
	r.root = root
	m := r.model
	m.Name, m.NameE = defaultModelName, defaultModelName
	m.Comment, m.CommentE = defaultModelComment, defaultModelComment
	if root == nil {
		return nil
	}
	if root.IKLoopFactor > 0 {
		r.opts.IKLoopFactor = root.IKLoopFactor
	}
	m.Name = root.Name
	if m.Name == "" {
		r.diags.add(compModel, CodeEmptyModelName, root.ObjectName, "using the root object name")
		m.Name = root.ObjectName
	}
	m.NameE = root.NameE
	if root.Comment != "" {
		m.Comment = encoding.NormalizeNewlines(root.Comment)
	}
	if root.CommentE != "" {
		m.CommentE = encoding.NormalizeNewlines(root.CommentE)
	}
	return nil
}

func (r *run) buildBones() error {
	arm, err := r.q.Armature()
	if err != nil {
		return fmt.Errorf("reading armature: %w", err)
	}
	r.arm = arm
	r.bones = buildBones(arm, r.opts.Scale, r.log.Named(compBones))
	ik := &ikBuilder{
		arm:        arm,
		table:      r.bones,
		policy:     r.opts.IKAngleLimits,
		loopFactor: r.opts.IKLoopFactor,
		diags:      &r.diags,
		log:        r.log.Named(compIK),
	}
	ik.build()
	r.model.Bones = r.bones.bones
	return nil
}

func (r *run) buildMeshes() error {
	meshes, err := r.q.Meshes()
	if err != nil {
		return fmt.Errorf("reading meshes: %w", err)
	}
	sorted := append([]*scene.Mesh(nil), meshes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	loader := &meshLoader{opts: r.opts, boneMap: r.bones.index, diags: &r.diags, log: r.log.Named(compMeshes)}
	for id, m := range sorted {
		lm := loader.load(m, id)
		r.addUV = max(r.addUV, lm.addUV)
		r.meshes = append(r.meshes, lm)
	}
	return nil
}

func (r *run) buildMaterials() error {
	mats, err := r.q.Materials()
	if err != nil {
		return fmt.Errorf("reading materials: %w", err)
	}
	byName := make(map[string]*scene.Material, len(mats))
	for _, m := range mats {
		byName[m.Name] = m
	}

	textures := newTextureTable(r.opts.ProbeTextures, &r.diags)
	r.materials = &materialTable{}
	for _, g := range groupByMaterial(r.meshes) {
		count := emitGroup(r.model, &r.emitted, g)
		mat, ok := byName[g.name]
		if !ok {
			mat = defaultMaterial(g.name)
		}
		r.model.Materials = append(r.model.Materials, exportMaterial(mat, count, textures, r.opts.DisableSpecular))
		r.materials.names = append(r.materials.names, g.name)
	}
	r.model.Textures = textures.Paths(r.opts.TextureBase)

	if r.opts.SortVertices != SortNone {
		sortVertices(r.model, r.emitted)
	}
	if r.opts.SortMaterials {
		sortMaterials(r.model, r.materials)
	}
	return nil
}

func (r *run) buildMorphs() error {
	f := &morphFlattener{
		scale:     r.opts.Scale,
		arm:       r.arm,
		bones:     r.bones,
		materials: r.materials,
		vertices:  exportedByIndex(r.emitted),
		diags:     &r.diags,
		log:       r.log.Named(compMorphs),
	}

	vdefs, err := r.q.Morphs(scene.MorphVertex)
	if err != nil {
		return fmt.Errorf("reading %s: %w", scene.MorphVertex, err)
	}
	entries := f.vertexMorphs(r.meshes, vdefs, r.root != nil)

	if r.root != nil {
		for _, kind := range []scene.MorphKind{scene.MorphBone, scene.MorphMaterial, scene.MorphUV, scene.MorphGroup} {
			defs, err := r.q.Morphs(kind)
			if err != nil {
				return fmt.Errorf("reading %s: %w", kind, err)
			}
			switch kind {
			case scene.MorphBone:
				entries = append(entries, f.boneMorphs(defs)...)
			case scene.MorphMaterial:
				entries = append(entries, f.materialMorphs(defs)...)
			case scene.MorphUV:
				entries = append(entries, f.uvMorphs(defs)...)
			case scene.MorphGroup:
				entries = append(entries, f.groupMorphs(defs)...)
			}
		}
		facial, err := r.q.FacialDisplayOrder()
		if err != nil {
			return fmt.Errorf("reading facial frame: %w", err)
		}
		r.morphs = orderMorphs(entries, facial)
		f.resolveGroups(entries, r.morphs)
	}

	r.model.Morphs = make([]pmx.Morph, len(entries))
	for i, e := range entries {
		r.model.Morphs[i] = e.morph
	}
	return nil
}

func (r *run) buildDisplays() error {
	if r.root == nil {
		return nil
	}
	frames, err := r.q.DisplayFrames()
	if err != nil {
		return fmt.Errorf("reading display frames: %w", err)
	}
	r.model.Displays = buildDisplays(frames, r.bones, r.morphs, &r.diags)
	return nil
}

func (r *run) buildPhysics() error {
	bodies, err := r.q.RigidBodies()
	if err != nil {
		return fmt.Errorf("reading rigid bodies: %w", err)
	}
	rigids, index, err := buildRigids(bodies, r.bones, r.opts.Scale, &r.diags)
	if err != nil {
		return err
	}
	joints, err := r.q.Joints()
	if err != nil {
		return fmt.Errorf("reading joints: %w", err)
	}
	r.model.Rigids = rigids
	r.model.Joints = buildJoints(joints, index, r.opts.Scale, &r.diags)
	return nil
}
