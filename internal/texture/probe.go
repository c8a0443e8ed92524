// Package texture checks that texture files referenced by materials exist
// and can be decoded.
package texture

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

var (
	ErrNotFound    = errors.New("texture not found")
	ErrUnsupported = errors.New("unsupported or corrupt texture")
)

// Info describes a decodable texture.
type Info struct {
	Width  int
	Height int
	Format string
}

type decoder struct {
	format string
	config func(io.Reader) (image.Config, error)
}

var (
	pngDecoder  = decoder{"png", png.DecodeConfig}
	jpegDecoder = decoder{"jpeg", jpeg.DecodeConfig}
	gifDecoder  = decoder{"gif", gif.DecodeConfig}
	bmpDecoder  = decoder{"bmp", bmp.DecodeConfig}
	webpDecoder = decoder{"webp", webp.DecodeConfig}
	tgaDecoder  = decoder{"tga", tga.DecodeConfig}
)

// TGA has no magic number, so it is always tried last.
var fallbackOrder = []decoder{pngDecoder, jpegDecoder, gifDecoder, bmpDecoder, webpDecoder, tgaDecoder}

var byExtension = map[string]decoder{
	".png":  pngDecoder,
	".jpg":  jpegDecoder,
	".jpeg": jpegDecoder,
	".gif":  gifDecoder,
	".bmp":  bmpDecoder,
	".webp": webpDecoder,
	".tga":  tgaDecoder,
}

// Probe opens path and decodes the image header.
// The decoder is picked by file extension first; sphere maps (.sph, .spa)
// and unknown extensions are sniffed.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Info{}, fmt.Errorf("texture: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := probeReader(f, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s", err, path)
	}
	return info, nil
}

// probeReader tries the decoders against r, rewinding between attempts.
// Only the header of r is read.
func probeReader(r io.ReadSeeker, ext string) (Info, error) {
	order := fallbackOrder
	if d, ok := byExtension[ext]; ok {
		order = append([]decoder{d}, fallbackOrder...)
	}
	for _, d := range order {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return Info{}, err
		}
		if info, err := d.probe(bufio.NewReader(r)); err == nil {
			return info, nil
		}
	}
	return Info{}, ErrUnsupported
}

func (d decoder) probe(r io.Reader) (Info, error) {
	cfg, err := d.config(r)
	if err != nil {
		return Info{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, ErrUnsupported
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: d.format}, nil
}
