// Package render turns rasters into encoded image files.
package render

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"ppm-diff/internal/pixel"
	"ppm-diff/internal/ppm"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/xerrors"
)

type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	PPM  Format = "ppm"
)

var Formats = []Format{PNG, JPEG, BMP, TIFF, PPM}

func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	if s == "jpg" {
		return JPEG, nil
	}
	return "", xerrors.Errorf("unknown output format: %s", s)
}

func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	case BMP:
		return "image/bmp"
	case TIFF:
		return "image/tiff"
	case PPM:
		return "image/x-portable-pixmap"
	default:
		return "application/octet-stream"
	}
}

func (f Format) Extension() string {
	return "." + string(f)
}

func Encode(w io.Writer, img image.Image, format Format) error {
	if b, ok := img.(*pixel.Buffer); ok && format != PPM {
		img = b.ToRGBA()
	}

	var err error
	switch format {
	case PNG:
		err = png.Encode(w, img)
	case JPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case BMP:
		err = bmp.Encode(w, img)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case PPM:
		err = ppm.Encode(w, img, 255)
	default:
		return xerrors.Errorf("unknown output format: %s", format)
	}
	if err != nil {
		return xerrors.Errorf("failed to encode %s image: %w", format, err)
	}
	return nil
}

func Bytes(img image.Image, format Format) ([]byte, error) {
	var buffer bytes.Buffer
	if err := Encode(&buffer, img, format); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
