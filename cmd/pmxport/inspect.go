package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/Faultbox/pmxport/internal/scene"
	"github.com/Faultbox/pmxport/internal/scene/gltfscene"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dump := fs.Bool("dump", false, "Dump every record instead of a summary")
	depth := fs.Int("depth", 0, "Maximum dump depth (0 = unlimited)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: pmxport inspect [-dump] <file.pmx|model.glb|model.gltf>")
	}
	path := fs.Arg(0)
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, MaxDepth: *depth}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		s, err := gltfscene.Load(path)
		if err != nil {
			return err
		}
		if *dump {
			cfg.Fdump(os.Stdout, s)
			return nil
		}
		printScene(os.Stdout, path, s)
	default:
		m, h, err := pmx.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if *dump {
			cfg.Fdump(os.Stdout, h, m)
			return nil
		}
		printModel(os.Stdout, path, m, h)
	}
	return nil
}

func printModel(w io.Writer, path string, m *pmx.Model, h pmx.Header) {
	fmt.Fprintf(w, "File:      %s\n", path)
	fmt.Fprintf(w, "Header:    %s\n", h)
	fmt.Fprintf(w, "Name:      %s (%s)\n", m.Name, m.NameE)
	fmt.Fprintf(w, "Vertices:  %d\n", len(m.Vertices))
	fmt.Fprintf(w, "Faces:     %d\n", len(m.Faces))
	fmt.Fprintf(w, "Textures:  %d\n", len(m.Textures))
	for _, t := range m.Textures {
		fmt.Fprintf(w, "  %s\n", t)
	}
	fmt.Fprintf(w, "Materials: %d\n", len(m.Materials))
	for _, mat := range m.Materials {
		fmt.Fprintf(w, "  %-24s %6d faces\n", mat.Name, mat.VertexCount/3)
	}
	fmt.Fprintf(w, "Bones:     %d\n", len(m.Bones))

	kinds := make(map[string]int)
	for _, mo := range m.Morphs {
		kinds[mo.Kind.String()]++
	}
	fmt.Fprintf(w, "Morphs:    %d", len(m.Morphs))
	for _, k := range []string{"vertex", "bone", "material", "uv", "group"} {
		if kinds[k] > 0 {
			fmt.Fprintf(w, " %s=%d", k, kinds[k])
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Frames:    %d\n", len(m.Displays))
	fmt.Fprintf(w, "Rigids:    %d\n", len(m.Rigids))
	fmt.Fprintf(w, "Joints:    %d\n", len(m.Joints))
}

func printScene(w io.Writer, path string, s *scene.Static) {
	fmt.Fprintf(w, "File:      %s\n", path)
	if s.RootInfo != nil {
		fmt.Fprintf(w, "Model:     %s (%s)\n", s.RootInfo.Name, s.RootInfo.NameE)
	} else {
		fmt.Fprintf(w, "Model:     no %s sidecar\n", gltfscene.SidecarSuffix)
	}
	bones := 0
	if s.Skeleton != nil {
		bones = len(s.Skeleton.Bones)
	}
	fmt.Fprintf(w, "Bones:     %d\n", bones)
	fmt.Fprintf(w, "Meshes:    %d\n", len(s.MeshList))
	for _, m := range s.MeshList {
		fmt.Fprintf(w, "  %-24s %6d verts %6d faces %d shape keys\n", m.Name, len(m.Vertices), len(m.Faces), max(len(m.ShapeKeys)-1, 0))
	}
	fmt.Fprintf(w, "Materials: %d\n", len(s.Mats))
	fmt.Fprintf(w, "Morphs:    %d\n", len(s.MorphDefs))
	for _, k := range scene.MorphKinds {
		defs, _ := s.Morphs(k)
		if len(defs) > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", k, len(defs))
		}
	}
	fmt.Fprintf(w, "Frames:    %d\n", len(s.Frames))
	fmt.Fprintf(w, "Rigids:    %d\n", len(s.Rigids))
	fmt.Fprintf(w, "Joints:    %d\n", len(s.JointList))
}
