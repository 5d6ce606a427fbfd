// Package ppm decodes and encodes the plain-text "P3" flavour of the Portable
// Pixel Map format.
//
// The format is described at https://netpbm.sourceforge.net/doc/ppm.html.
// Only the line-oriented layout is accepted: the magic token, the dimensions
// and the maximum value each sit on their own line, followed by one line per
// raster row.
package ppm

import (
	"bufio"
	"image"
	"image/color"
	"io"
	"math"
	"ppm-diff/internal/pixel"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

const Magic = "P3"

// lookupLimit bounds the size of the per-decode sample table.
const lookupLimit = 1 << 16

func init() {
	image.RegisterFormat("ppm", Magic, decodeImage, DecodeConfig)
}

type Decoder struct {
	layout pixel.Layout
}

// NewDecoder returns a Decoder producing buffers in the given layout.
func NewDecoder(layout pixel.Layout) *Decoder {
	return &Decoder{
		layout: layout,
	}
}

// Decode parses text with an RGBA decoder.
func Decode(text string) (*pixel.Buffer, error) {
	return NewDecoder(pixel.RGBA).Decode(text)
}

// DecodeReader reads r to the end and decodes it.
func (d *Decoder) DecodeReader(r io.Reader) (*pixel.Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("failed to read ppm data: %w", err)
	}
	return d.Decode(string(data))
}

type line struct {
	text   string
	number int
}

type header struct {
	width    int
	height   int
	maxValue int
}

func (d *Decoder) Decode(text string) (*pixel.Buffer, error) {
	if !d.layout.Valid() {
		return nil, xerrors.Errorf("invalid decoder layout: %d", int(d.layout))
	}

	lines := splitLines(text)
	h, err := parseHeader(lines)
	if err != nil {
		return nil, err
	}

	rows := lines[3:]
	if len(rows) < h.height {
		return nil, formatError(ErrTruncated, lastLine(lines))
	}
	// Every sample needs at least one digit, so a header promising more
	// samples than the text has bytes cannot be satisfied.
	if int64(h.width)*int64(h.height)*3 > int64(len(text)) {
		return nil, formatError(ErrTruncated, rows[len(rows)-1].number)
	}

	scale := newScaler(h.maxValue)
	stride := int(d.layout)
	pix := pixel.Alloc(h.width, h.height, d.layout)

	for y := 0; y < h.height; y++ {
		row := rows[y]
		o := y * h.width * stride
		rest := row.text
		for x := 0; x < h.width; x++ {
			for c := 0; c < 3; c++ {
				var token string
				token, rest = nextToken(rest)
				if token == "" {
					return nil, formatError(ErrTruncated, row.number)
				}
				sample, err := strconv.Atoi(token)
				if err != nil {
					return nil, formatError(ErrBadSample, row.number)
				}
				pix[o+c] = scale(sample)
			}
			o += stride
		}
	}

	return pixel.New(h.width, h.height, d.layout, pix)
}

// DecodeConfig reads only the header of a P3 document.
func DecodeConfig(r io.Reader) (image.Config, error) {
	scanner := bufio.NewScanner(r)
	var lines []line
	number := 0
	for len(lines) < 3 && scanner.Scan() {
		number++
		if l, ok := significant(scanner.Text(), number); ok {
			lines = append(lines, l)
		}
	}
	if err := scanner.Err(); err != nil {
		return image.Config{}, xerrors.Errorf("failed to read ppm header: %w", err)
	}

	h, err := parseHeader(lines)
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		ColorModel: color.RGBAModel,
		Width:      h.width,
		Height:     h.height,
	}, nil
}

func decodeImage(r io.Reader) (image.Image, error) {
	return NewDecoder(pixel.RGBA).DecodeReader(r)
}

func parseHeader(lines []line) (header, error) {
	if len(lines) == 0 || lines[0].text != Magic {
		return header{}, formatError(ErrBadMagic, firstLine(lines))
	}
	if len(lines) < 2 {
		return header{}, formatError(ErrBadDimensions, 0)
	}

	dims := strings.Fields(lines[1].text)
	if len(dims) != 2 {
		return header{}, formatError(ErrBadDimensions, lines[1].number)
	}
	width, err := strconv.Atoi(dims[0])
	if err != nil || width <= 0 {
		return header{}, formatError(ErrBadDimensions, lines[1].number)
	}
	height, err := strconv.Atoi(dims[1])
	if err != nil || height <= 0 {
		return header{}, formatError(ErrBadDimensions, lines[1].number)
	}
	if width > math.MaxInt32/4/height {
		return header{}, formatError(ErrBadDimensions, lines[1].number)
	}

	if len(lines) < 3 {
		return header{}, formatError(ErrBadMaxValue, 0)
	}
	maxValue, err := strconv.Atoi(lines[2].text)
	if err != nil || maxValue <= 0 {
		return header{}, formatError(ErrBadMaxValue, lines[2].number)
	}

	return header{
		width:    width,
		height:   height,
		maxValue: maxValue,
	}, nil
}

// splitLines drops carriage returns, blank lines and comment lines, keeping
// the original 1-based line numbers.
func splitLines(text string) []line {
	text = strings.ReplaceAll(text, "\r", "")
	raw := strings.Split(text, "\n")
	lines := make([]line, 0, len(raw))
	for i, s := range raw {
		if l, ok := significant(s, i+1); ok {
			lines = append(lines, l)
		}
	}
	return lines
}

func significant(s string, number int) (line, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r", ""))
	if s == "" || strings.HasPrefix(s, "#") {
		return line{}, false
	}
	return line{text: s, number: number}, true
}

func nextToken(s string) (string, string) {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	j := i
	for j < len(s) && !isSpace(s[j]) {
		j++
	}
	return s[i:j], s[j:]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\v' || c == '\f'
}

func firstLine(lines []line) int {
	if len(lines) == 0 {
		return 0
	}
	return lines[0].number
}

func lastLine(lines []line) int {
	if len(lines) == 0 {
		return 0
	}
	return lines[len(lines)-1].number
}

// newScaler maps a sample in [0, maxValue] to round(255*sample/maxValue).
// Out of range samples clamp to 0 or 255.
func newScaler(maxValue int) func(int) uint8 {
	convert := func(sample int) uint8 {
		return uint8(math.Floor(255*float64(sample)/float64(maxValue) + 0.5))
	}

	if maxValue >= lookupLimit {
		return func(sample int) uint8 {
			if sample <= 0 {
				return 0
			}
			if sample >= maxValue {
				return 255
			}
			return convert(sample)
		}
	}

	table := make([]uint8, maxValue+1)
	for i := range table {
		table[i] = convert(i)
	}
	return func(sample int) uint8 {
		if sample <= 0 {
			return 0
		}
		if sample >= maxValue {
			return 255
		}
		return table[sample]
	}
}
