package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/pmxport/internal/config"
	"github.com/Faultbox/pmxport/internal/export"
	"github.com/Faultbox/pmxport/internal/scene/gltfscene"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"chara.glb", "chara.pmx"},
		{"models/chara.gltf", "models/chara.pmx"},
		{"noext", "noext.pmx"},
	}
	for _, tt := range tests {
		if got := outputPath(tt.in); got != tt.want {
			t.Errorf("outputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Export.SortVertices = config.SortVerticesCustom
	cfg.Export.IKAngleLimits = config.IKLimitsIgnoreAll
	cfg.Textures.Probe = false

	dir := t.TempDir()
	opts := exportOptions(cfg, filepath.Join(dir, "out.pmx"), zap.NewNop())
	if opts.SortVertices != export.SortCustom || opts.IKAngleLimits != export.IKLimitsIgnoreAll {
		t.Errorf("enums not mapped: %q %q", opts.SortVertices, opts.IKAngleLimits)
	}
	if opts.Scale != 12.5 || opts.ProbeTextures {
		t.Errorf("scale %v probe %v", opts.Scale, opts.ProbeTextures)
	}
	if opts.TextureBase != dir {
		t.Errorf("TextureBase = %q, want %q", opts.TextureBase, dir)
	}

	cfg.Textures.RelativePaths = false
	if opts := exportOptions(cfg, filepath.Join(dir, "out.pmx"), nil); opts.TextureBase != "" {
		t.Errorf("absolute paths requested, got base %q", opts.TextureBase)
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.pmx")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	failure := errors.New("boom")
	err := writeAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("got %v, want %v", err, failure)
	}
	if data, _ := os.ReadFile(path); string(data) != "old" {
		t.Errorf("failed write replaced the file: %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}

	err = writeAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "new")
		return err
	})
	if err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "new" {
		t.Errorf("file = %q, want new", data)
	}
}

// writeModel saves a one-bone skinned triangle with a "smile" morph target.
func writeModel(t *testing.T, dir string) string {
	t.Helper()
	doc := gltf.NewDocument()
	doc.Nodes = []*gltf.Node{
		{Name: "root", Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
		{Name: "body", Mesh: gltf.Index(0), Skin: gltf.Index(0)},
	}
	doc.Scenes[0].Nodes = []uint32{0, 1}
	doc.Skins = []*gltf.Skin{{Joints: []uint32{0}}}

	prim := &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION:   modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
			gltf.NORMAL:     modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}),
			gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}}),
			gltf.JOINTS_0:   modeler.WriteJoints(doc, [][4]uint16{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}),
			gltf.WEIGHTS_0:  modeler.WriteWeights(doc, [][4]float32{{1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}}),
		},
		Indices:  gltf.Index(modeler.WriteIndices(doc, []uint16{0, 1, 2})),
		Material: gltf.Index(0),
	}
	prim.Targets = append(prim.Targets, map[string]uint32{
		gltf.POSITION: modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {0, 0.1, 0}, {0, 0, 0}}),
	})
	doc.Meshes = []*gltf.Mesh{{
		Primitives: []*gltf.Primitive{prim},
		Extras:     map[string]any{"targetNames": []any{"smile"}},
	}}
	doc.Materials = []*gltf.Material{{Name: "body"}}

	path := filepath.Join(dir, "chara.glb")
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatalf("SaveBinary: %v", err)
	}
	side := "model:\n  name: テスト\n  name_e: Test\nvertex_morphs:\n  - name: smile\n    category: MOUTH\n"
	if err := os.WriteFile(path+".pmx.yaml", []byte(side), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	in := writeModel(t, dir)
	out := filepath.Join(dir, "out", "chara.pmx")

	res, err := exportFile(context.Background(), in, out, config.Default(), zap.NewNop())
	if err != nil {
		t.Fatalf("exportFile: %v", err)
	}
	if res.Stats.Vertices != 3 || res.Stats.Faces != 1 || res.Stats.Bones != 1 || res.Stats.Morphs != 1 {
		t.Errorf("stats: %+v", res.Stats)
	}

	m, h, err := pmx.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if m.Name != "テスト" || m.NameE != "Test" {
		t.Errorf("name %q / %q", m.Name, m.NameE)
	}
	if len(m.Vertices) != 3 || len(m.Faces) != 1 || len(m.Materials) != 1 || len(m.Bones) != 1 {
		t.Errorf("counts: v%d f%d m%d b%d", len(m.Vertices), len(m.Faces), len(m.Materials), len(m.Bones))
	}
	if len(m.Morphs) != 1 || m.Morphs[0].Name != "smile" || m.Morphs[0].Kind != pmx.MorphVertex {
		t.Fatalf("morphs: %+v", m.Morphs)
	}
	if m.Morphs[0].Category != pmx.CategoryMouth || len(m.Morphs[0].Vertex) != 1 {
		t.Errorf("smile: category %d, %d offsets", m.Morphs[0].Category, len(m.Morphs[0].Vertex))
	}

	var buf bytes.Buffer
	printModel(&buf, out, m, h)
	for _, want := range []string{"Vertices:  3", "Bones:     1", "vertex=1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, buf.String())
		}
	}
}

func TestExportFileCancelled(t *testing.T) {
	dir := t.TempDir()
	in := writeModel(t, dir)
	out := filepath.Join(dir, "chara.pmx")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := exportFile(ctx, in, out, config.Default(), zap.NewNop()); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("cancelled export left %s behind", out)
	}
}

func TestExportFileMissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "x.pmx")
	if _, err := exportFile(context.Background(), filepath.Join(dir, "x.glb"), out, config.Default(), zap.NewNop()); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output created for a missing input")
	}
}

func TestPrintScene(t *testing.T) {
	dir := t.TempDir()
	in := writeModel(t, dir)
	s, err := gltfscene.Load(in)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	var buf bytes.Buffer
	printScene(&buf, in, s)
	for _, want := range []string{"Model:     テスト (Test)", "Bones:     1", "vertex_morphs"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, buf.String())
		}
	}
}

func TestPrintResult(t *testing.T) {
	res := &export.Result{
		Stats: export.Stats{Vertices: 4, SourceVertices: 3, Faces: 2},
		Diagnostics: []export.Diagnostic{
			{Component: "materials", Code: export.CodeTextureMissing, Subject: "a.png"},
			{Component: "morphs", Code: export.CodeGroupMorphUnresolved, Subject: "combo"},
			{Component: "materials", Code: export.CodeTextureMissing, Subject: "b.png"},
		},
	}
	var buf bytes.Buffer
	printResult(&buf, "out.pmx", res)
	out := buf.String()

	for _, want := range []string{"Vertices:  4 (from 3)", "Warnings:  3"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}
	// totals per code, sorted; the subjects are left to the log
	g := strings.Index(out, export.CodeGroupMorphUnresolved)
	tm := strings.Index(out, export.CodeTextureMissing)
	if g < 0 || tm < 0 || g > tm {
		t.Errorf("codes missing or unsorted:\n%s", out)
	}
	if strings.Count(out, export.CodeTextureMissing) != 1 || strings.Contains(out, "a.png") {
		t.Errorf("diagnostics listed one by one:\n%s", out)
	}
}
