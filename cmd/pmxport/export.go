package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/pmxport/internal/config"
	"github.com/Faultbox/pmxport/internal/export"
	"github.com/Faultbox/pmxport/internal/logger"
	"github.com/Faultbox/pmxport/internal/scene/gltfscene"
	"github.com/Faultbox/pmxport/pkg/pmx"
)

var errUsage = errors.New("usage: pmxport export [options] <model.glb|model.gltf>")

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fs)
	output := fs.String("o", "", "Output .pmx path (default: input path with .pmx extension)")
	saveConfig := fs.Bool("save-config", false, "Save the effective settings to the user config file")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errUsage
	}

	cfg, err := config.Load(&flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	if *saveConfig {
		path, err := cfg.Save()
		if err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		logger.Info("config saved", zap.String("path", path))
	}

	in := fs.Arg(0)
	out := *output
	if out == "" {
		out = outputPath(in)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := exportFile(ctx, in, out, cfg, logger.Named("export"))
	if err != nil {
		return err
	}

	printResult(os.Stdout, out, res)
	return nil
}

// printResult summarises an export. Each diagnostic was already logged with
// its details, so only the per-code totals are repeated here.
func printResult(w io.Writer, out string, res *export.Result) {
	s := res.Stats
	fmt.Fprintf(w, "Wrote %s\n", out)
	fmt.Fprintf(w, "  Vertices:  %d (from %d)\n", s.Vertices, s.SourceVertices)
	fmt.Fprintf(w, "  Faces:     %d\n", s.Faces)
	fmt.Fprintf(w, "  Materials: %d\n", s.Materials)
	fmt.Fprintf(w, "  Bones:     %d\n", s.Bones)
	fmt.Fprintf(w, "  Morphs:    %d\n", s.Morphs)
	if len(res.Diagnostics) == 0 {
		return
	}
	counts := export.CountByCode(res.Diagnostics)
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	fmt.Fprintf(w, "  Warnings:  %d\n", len(res.Diagnostics))
	for _, code := range codes {
		fmt.Fprintf(w, "    %-32s %d\n", code, counts[code])
	}
}

// outputPath swaps the model extension for .pmx.
func outputPath(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + ".pmx"
}

// exportOptions maps the loaded settings onto one export run.
func exportOptions(cfg *config.Config, out string, log *zap.Logger) export.Options {
	opts := export.Options{
		Scale:           cfg.Export.Scale,
		VertexSplitting: cfg.Export.VertexSplitting,
		IKAngleLimits:   export.IKLimitPolicy(cfg.Export.IKAngleLimits),
		SortMaterials:   cfg.Export.SortMaterials,
		SortVertices:    export.VertexSort(cfg.Export.SortVertices),
		DisableSpecular: cfg.Export.DisableSpecular,
		IKLoopFactor:    cfg.Export.IKLoopFactor,
		ProbeTextures:   cfg.Textures.Probe,
		Logger:          log,
	}
	if cfg.Textures.RelativePaths {
		dir, err := filepath.Abs(filepath.Dir(out))
		if err == nil {
			opts.TextureBase = dir
		}
	}
	return opts
}

// exportFile converts in and writes the model to out. out is only replaced
// once the whole model has been written.
func exportFile(ctx context.Context, in, out string, cfg *config.Config, log *zap.Logger) (*export.Result, error) {
	q, err := gltfscene.Load(in)
	if err != nil {
		return nil, err
	}
	a := export.NewAssembler(exportOptions(cfg, out, log))

	var res *export.Result
	err = writeAtomic(out, func(w io.Writer) error {
		var err error
		res, err = a.Export(ctx, q, pmx.Writer{}, w)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// writeAtomic writes through a temp file in the target directory and
// renames it over path when fn succeeds.
func writeAtomic(path string, fn func(w io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	bw := bufio.NewWriter(f)
	err = fn(bw)
	if err == nil {
		err = bw.Flush()
	}
	err = multierr.Append(err, f.Close())
	if err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
