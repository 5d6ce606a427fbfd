package image

import (
	"fmt"
	"image"
	"ppm-diff/internal/pixel"
)

type Summary struct {
	PixelDiffRatio    float64 `json:"pixelDiffRatio"`
	ChannelDiffRatio  float64 `json:"channelDiffRatio"`
	DifferentPixels   int     `json:"differentPixels"`
	DifferentChannels int     `json:"differentChannels"`
	TotalPixels       int     `json:"totalPixels"`
}

// Percentages returns both ratios scaled to 0-100.
func (s Summary) Percentages() (float64, float64) {
	return s.PixelDiffRatio * 100, s.ChannelDiffRatio * 100
}

type DiffResult struct {
	Mask    *pixel.Buffer
	Delta   *pixel.Buffer
	Summary Summary
	Regions []image.Rectangle
}

type Differ interface {
	Calculate(baseline *pixel.Buffer, target *pixel.Buffer) (*DiffResult, error)
}

type DimensionMismatchError struct {
	Baseline image.Point
	Target   image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimensions do not match: baseline %dx%d, target %dx%d", e.Baseline.X, e.Baseline.Y, e.Target.X, e.Target.Y)
}

// Region is the JSON form of a changed area.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func NewRegions(rects []image.Rectangle) []Region {
	regions := make([]Region, 0, len(rects))
	for _, r := range rects {
		regions = append(regions, Region{
			X:      r.Min.X,
			Y:      r.Min.Y,
			Width:  r.Dx(),
			Height: r.Dy(),
		})
	}
	return regions
}
