package pixel

import (
	"image"
	"image/color"

	"golang.org/x/xerrors"
)

// Layout is the number of bytes stored per pixel.
type Layout int

const (
	// RGB packs three channel bytes per pixel.
	RGB Layout = 3
	// RGBA stores a fourth alpha byte which is always 255.
	RGBA Layout = 4
)

func (l Layout) Valid() bool {
	return l == RGB || l == RGBA
}

func (l Layout) String() string {
	switch l {
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// ParseLayout accepts "rgb" or "rgba".
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "rgb":
		return RGB, nil
	case "rgba":
		return RGBA, nil
	default:
		return 0, xerrors.Errorf("unknown pixel layout: %s", s)
	}
}

const opaque = 255

// Buffer is a decoded RGB raster. It never changes after New returns.
type Buffer struct {
	width  int
	height int
	layout Layout
	pix    []byte
}

// New wraps pix as a Buffer. The caller hands over ownership of pix and must
// not write to it afterwards.
func New(width int, height int, layout Layout, pix []byte) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, xerrors.Errorf("invalid dimensions %dx%d", width, height)
	}
	if !layout.Valid() {
		return nil, xerrors.Errorf("invalid layout: %d", int(layout))
	}
	if want := width * height * int(layout); len(pix) != want {
		return nil, xerrors.Errorf("pixel data has %d bytes, want %d", len(pix), want)
	}
	if layout == RGBA {
		for i := 3; i < len(pix); i += 4 {
			if pix[i] != opaque {
				return nil, xerrors.Errorf("alpha at byte %d is %d, want %d", i, pix[i], opaque)
			}
		}
	}

	return &Buffer{
		width:  width,
		height: height,
		layout: layout,
		pix:    pix,
	}, nil
}

// Alloc returns a zeroed pixel slice sized for width x height in the given
// layout, with alpha bytes already set for RGBA.
func Alloc(width int, height int, layout Layout) []byte {
	pix := make([]byte, width*height*int(layout))
	if layout == RGBA {
		for i := 3; i < len(pix); i += 4 {
			pix[i] = opaque
		}
	}
	return pix
}

func (b *Buffer) Width() int {
	return b.width
}

func (b *Buffer) Height() int {
	return b.height
}

func (b *Buffer) Layout() Layout {
	return b.layout
}

// Len is the number of bytes backing the buffer.
func (b *Buffer) Len() int {
	return len(b.pix)
}

// Offset returns the index of the first byte of (x, y).
func (b *Buffer) Offset(x int, y int) int {
	return (y*b.width + x) * int(b.layout)
}

// RGB returns the channel values at (x, y). It panics outside the raster.
func (b *Buffer) RGB(x int, y int) (uint8, uint8, uint8) {
	i := b.Offset(x, y)
	p := b.pix[i : i+3 : i+3]
	return p[0], p[1], p[2]
}

// Bytes returns a copy of the backing bytes.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.pix))
	copy(out, b.pix)
	return out
}

// Equal reports whether both buffers have the same size and RGB content,
// regardless of layout.
func (b *Buffer) Equal(other *Buffer) bool {
	if b == other {
		return true
	}
	if b == nil || other == nil || b.width != other.width || b.height != other.height {
		return false
	}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			r1, g1, b1 := b.RGB(x, y)
			r2, g2, b2 := other.RGB(x, y)
			if r1 != r2 || g1 != g2 || b1 != b2 {
				return false
			}
		}
	}
	return true
}

func (b *Buffer) ColorModel() color.Model {
	return color.RGBAModel
}

func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

func (b *Buffer) At(x int, y int) color.Color {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return color.RGBA{}
	}
	r, g, bl := b.RGB(x, y)
	return color.RGBA{R: r, G: g, B: bl, A: opaque}
}

// ToRGBA copies the buffer into a new *image.RGBA.
func (b *Buffer) ToRGBA() *image.RGBA {
	img := image.NewRGBA(b.Bounds())
	if b.layout == RGBA {
		copy(img.Pix, b.pix)
		return img
	}
	for i, j := 0, 0; i < len(b.pix); i, j = i+3, j+4 {
		img.Pix[j] = b.pix[i]
		img.Pix[j+1] = b.pix[i+1]
		img.Pix[j+2] = b.pix[i+2]
		img.Pix[j+3] = opaque
	}
	return img
}
