package pmx

import "fmt"

const (
	magic   = "PMX "
	version = float32(2.0)

	encodingUTF16 uint8 = 0
	encodingUTF8  uint8 = 1
)

// Header holds the globals section of a PMX file: text encoding, the
// number of additional UV channels and the byte width of each index kind.
type Header struct {
	Version      float32
	Encoding     uint8
	AddUVCount   int
	VertexSize   uint8
	TextureSize  uint8
	MaterialSize uint8
	BoneSize     uint8
	MorphSize    uint8
	RigidSize    uint8
}

// String returns a one-line summary of the header.
func (h Header) String() string {
	return fmt.Sprintf("PMX %.1f enc=%d adduv=%d idx=v%d/t%d/m%d/b%d/mo%d/r%d",
		h.Version, h.Encoding, h.AddUVCount,
		h.VertexSize, h.TextureSize, h.MaterialSize, h.BoneSize, h.MorphSize, h.RigidSize)
}

// headerFor picks the narrowest index sizes that can address every table
// of m. Vertex indices are unsigned; all other indices are signed so that
// -1 stays representable.
func headerFor(m *Model, addUVCount int) Header {
	return Header{
		Version:      version,
		Encoding:     encodingUTF16,
		AddUVCount:   addUVCount,
		VertexSize:   unsignedIndexSize(len(m.Vertices)),
		TextureSize:  signedIndexSize(len(m.Textures)),
		MaterialSize: signedIndexSize(len(m.Materials)),
		BoneSize:     signedIndexSize(len(m.Bones)),
		MorphSize:    signedIndexSize(len(m.Morphs)),
		RigidSize:    signedIndexSize(len(m.Rigids)),
	}
}

func unsignedIndexSize(n int) uint8 {
	switch {
	case n < 1<<8:
		return 1
	case n < 1<<16:
		return 2
	default:
		return 4
	}
}

func signedIndexSize(n int) uint8 {
	switch {
	case n < 1<<7:
		return 1
	case n < 1<<15:
		return 2
	default:
		return 4
	}
}

func validIndexSize(n uint8) bool {
	return n == 1 || n == 2 || n == 4
}
