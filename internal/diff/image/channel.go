package image

import (
	"context"
	"image"
	"ppm-diff/internal/pixel"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/xerrors"
)

const DefaultAmplification = 10

var (
	maskChanged   = [3]uint8{255, 0, 255}
	maskUnchanged = [3]uint8{255, 255, 255}
)

// ChannelDiff compares two rasters channel by channel. It produces a
// magenta/white mask of differing pixels and a delta raster where each
// channel holds the absolute difference multiplied by the amplification
// factor, saturating at 255.
type ChannelDiff struct {
	layout        pixel.Layout
	amplification int
	workers       int
	regions       bool
}

type Option func(*ChannelDiff)

// WithLayout sets the layout of the mask and delta buffers.
func WithLayout(layout pixel.Layout) Option {
	return func(c *ChannelDiff) {
		if layout.Valid() {
			c.layout = layout
		}
	}
}

// WithAmplification sets the delta multiplier. Values below 1 are treated as 1.
func WithAmplification(factor int) Option {
	return func(c *ChannelDiff) {
		c.amplification = max(factor, 1)
	}
}

// WithWorkers sets how many row bands are scanned concurrently.
func WithWorkers(n int) Option {
	return func(c *ChannelDiff) {
		c.workers = max(n, 1)
	}
}

// WithRegions enables bounding rectangles of changed areas in the result.
func WithRegions(enabled bool) Option {
	return func(c *ChannelDiff) {
		c.regions = enabled
	}
}

func NewChannelDiff(opts ...Option) *ChannelDiff {
	c := &ChannelDiff{
		layout:        pixel.RGBA,
		amplification: DefaultAmplification,
		// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ChannelDiff) Calculate(baseline *pixel.Buffer, target *pixel.Buffer) (*DiffResult, error) {
	return c.CalculateContext(context.Background(), baseline, target)
}

// CalculateContext is Calculate with cancellation checked between rows.
func (c *ChannelDiff) CalculateContext(ctx context.Context, baseline *pixel.Buffer, target *pixel.Buffer) (*DiffResult, error) {
	if baseline == nil || target == nil {
		return nil, xerrors.New("baseline and target are required")
	}
	if baseline.Width() != target.Width() || baseline.Height() != target.Height() {
		return nil, &DimensionMismatchError{
			Baseline: image.Pt(baseline.Width(), baseline.Height()),
			Target:   image.Pt(target.Width(), target.Height()),
		}
	}

	width := baseline.Width()
	height := baseline.Height()
	mask := pixel.Alloc(width, height, c.layout)
	delta := pixel.Alloc(width, height, c.layout)

	var differentPixels int64
	var differentChannels int64

	numWorkers := min(c.workers, height)
	rowsPerWorker := height / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}

		go func(startY int, endY int) {
			defer wg.Done()
			c.processRows(ctx, baseline, target, mask, delta, startY, endY, &differentPixels, &differentChannels)
		}(startY, endY)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, xerrors.Errorf("diff canceled: %w", err)
	}

	maskBuffer, err := pixel.New(width, height, c.layout, mask)
	if err != nil {
		return nil, xerrors.Errorf("failed to build mask buffer: %w", err)
	}
	deltaBuffer, err := pixel.New(width, height, c.layout, delta)
	if err != nil {
		return nil, xerrors.Errorf("failed to build delta buffer: %w", err)
	}

	totalPixels := width * height
	result := &DiffResult{
		Mask:  maskBuffer,
		Delta: deltaBuffer,
		Summary: Summary{
			PixelDiffRatio:    float64(differentPixels) / float64(totalPixels),
			ChannelDiffRatio:  float64(differentChannels) / float64(totalPixels*3),
			DifferentPixels:   int(differentPixels),
			DifferentChannels: int(differentChannels),
			TotalPixels:       totalPixels,
		},
	}
	if c.regions && differentPixels > 0 {
		result.Regions = FindRegions(maskBuffer, IsMaskChanged)
	}

	return result, nil
}

func (c *ChannelDiff) processRows(ctx context.Context, baseline *pixel.Buffer, target *pixel.Buffer, mask []byte, delta []byte, startY int, endY int, pixelCount *int64, channelCount *int64) {
	var localPixels int64
	var localChannels int64

	stride := int(c.layout)
	width := baseline.Width()

	for y := startY; y < endY; y++ {
		if ctx.Err() != nil {
			break
		}

		offset := y * width * stride
		for x := 0; x < width; x++ {
			br, bg, bb := baseline.RGB(x, y)
			tr, tg, tb := target.RGB(x, y)

			dr := absDiff(br, tr)
			dg := absDiff(bg, tg)
			db := absDiff(bb, tb)

			changed := 0
			if dr != 0 {
				changed++
			}
			if dg != 0 {
				changed++
			}
			if db != 0 {
				changed++
			}

			m := &maskUnchanged
			if changed > 0 {
				m = &maskChanged
				localPixels++
				localChannels += int64(changed)
			}
			mask[offset] = m[0]
			mask[offset+1] = m[1]
			mask[offset+2] = m[2]

			delta[offset] = c.amplify(dr)
			delta[offset+1] = c.amplify(dg)
			delta[offset+2] = c.amplify(db)

			offset += stride
		}
	}

	atomic.AddInt64(pixelCount, localPixels)
	atomic.AddInt64(channelCount, localChannels)
}

func (c *ChannelDiff) amplify(d uint8) uint8 {
	return uint8(min(int(d)*c.amplification, 255))
}

func absDiff(a uint8, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// IsMaskChanged reports whether a mask pixel marks a difference.
func IsMaskChanged(r uint8, g uint8, b uint8) bool {
	return r == maskChanged[0] && g == maskChanged[1] && b == maskChanged[2]
}
