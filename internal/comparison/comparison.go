// Package comparison holds the pair of rasters a user has loaded and runs a
// diff once both are present.
package comparison

import (
	"context"
	"errors"
	diffimage "ppm-diff/internal/diff/image"
	"ppm-diff/internal/pixel"
	"ppm-diff/internal/ppm"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type Side int

const (
	Baseline Side = iota
	Target
)

func (s Side) String() string {
	switch s {
	case Baseline:
		return "baseline"
	case Target:
		return "target"
	default:
		return "unknown"
	}
}

var ErrIncomplete = errors.New("2 images required to diff")

// Differ is satisfied by *diffimage.ChannelDiff.
type Differ interface {
	CalculateContext(ctx context.Context, baseline *pixel.Buffer, target *pixel.Buffer) (*diffimage.DiffResult, error)
}

// Fetch returns the raw P3 text stored under ref.
type Fetch func(ctx context.Context, ref string) ([]byte, error)

type Comparison struct {
	decoder *ppm.Decoder

	mu     sync.RWMutex
	images [2]*pixel.Buffer
}

func New(decoder *ppm.Decoder) *Comparison {
	return &Comparison{
		decoder: decoder,
	}
}

// Load decodes text into the given side. The previously loaded image is kept
// when decoding fails.
func (c *Comparison) Load(side Side, text string) (*pixel.Buffer, error) {
	if side != Baseline && side != Target {
		return nil, xerrors.Errorf("invalid side: %d", int(side))
	}

	b, err := c.decoder.Decode(text)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode %s image: %w", side, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.images[side] = b
	return b, nil
}

// LoadPair fetches and decodes both sides concurrently.
func (c *Comparison) LoadPair(ctx context.Context, fetch Fetch, baseline string, target string) error {
	eg, ctx := errgroup.WithContext(ctx)

	for side, ref := range map[Side]string{Baseline: baseline, Target: target} {
		eg.Go(func() error {
			data, err := fetch(ctx, ref)
			if err != nil {
				return xerrors.Errorf("failed to fetch %s image: %w", side, err)
			}
			_, err = c.Load(side, string(data))
			return err
		})
	}

	return eg.Wait()
}

func (c *Comparison) Image(side Side) *pixel.Buffer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if side != Baseline && side != Target {
		return nil
	}
	return c.images[side]
}

func (c *Comparison) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.images[Baseline] != nil && c.images[Target] != nil
}

// Run diffs the loaded pair, returning ErrIncomplete until both sides are
// loaded.
func (c *Comparison) Run(ctx context.Context, differ Differ) (*diffimage.DiffResult, error) {
	c.mu.RLock()
	baseline, target := c.images[Baseline], c.images[Target]
	c.mu.RUnlock()

	if baseline == nil || target == nil {
		return nil, ErrIncomplete
	}
	return differ.CalculateContext(ctx, baseline, target)
}

// Clear forgets both images.
func (c *Comparison) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = [2]*pixel.Buffer{}
}
