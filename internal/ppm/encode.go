package ppm

import (
	"bufio"
	"image"
	"image/color"
	"io"
	"ppm-diff/internal/pixel"
	"strconv"

	"golang.org/x/xerrors"
)

// Encode writes img as a P3 document with the given maximum sample value,
// one raster row per line.
func Encode(w io.Writer, img image.Image, maxValue int) error {
	if maxValue <= 0 || maxValue > 65535 {
		return xerrors.Errorf("maxValue out of range: %d", maxValue)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return xerrors.Errorf("cannot encode empty image %dx%d", width, height)
	}

	bw := bufio.NewWriter(w)
	line := make([]byte, 0, 64)
	line = append(line, Magic...)
	line = append(line, '\n')
	line = strconv.AppendInt(line, int64(width), 10)
	line = append(line, ' ')
	line = strconv.AppendInt(line, int64(height), 10)
	line = append(line, '\n')
	line = strconv.AppendInt(line, int64(maxValue), 10)
	line = append(line, '\n')
	if _, err := bw.Write(line); err != nil {
		return xerrors.Errorf("failed to write ppm header: %w", err)
	}

	buffer, isBuffer := img.(*pixel.Buffer)
	for y := 0; y < height; y++ {
		line = line[:0]
		for x := 0; x < width; x++ {
			var r, g, b uint8
			if isBuffer {
				r, g, b = buffer.RGB(x, y)
			} else {
				c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				r, g, b = c.R, c.G, c.B
			}
			if x > 0 {
				line = append(line, ' ')
			}
			line = strconv.AppendInt(line, int64(unscale(r, maxValue)), 10)
			line = append(line, ' ')
			line = strconv.AppendInt(line, int64(unscale(g, maxValue)), 10)
			line = append(line, ' ')
			line = strconv.AppendInt(line, int64(unscale(b, maxValue)), 10)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return xerrors.Errorf("failed to write ppm row %d: %w", y, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return xerrors.Errorf("failed to flush ppm data: %w", err)
	}
	return nil
}

func unscale(v uint8, maxValue int) int {
	return (int(v)*maxValue*2 + 255) / 510
}
