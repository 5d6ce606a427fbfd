package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"ppm-diff/internal/comparison"
	diffimage "ppm-diff/internal/diff/image"
	"ppm-diff/internal/envconfig"
	"ppm-diff/internal/pixel"
	"ppm-diff/internal/ppm"
	"ppm-diff/internal/render"
	"ppm-diff/internal/retry"
	"ppm-diff/internal/storage"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type DiffOutput struct {
	MaskPath  string `json:"maskPath"`
	DeltaPath string `json:"deltaPath"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	diffimage.Summary
	Regions []diffimage.Region `json:"regions,omitempty"`
}

type Runner struct {
	Storage       storage.Storage
	Format        render.Format
	Layout        pixel.Layout
	Amplification int
	Regions       bool
	Now           func() time.Time
}

func main() {
	if err := envconfig.Load(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}

	var directory string
	var storageBackend string
	var outputFormat string
	var layout string
	var amplification int
	var regions bool
	var callbackURL string
	flag.StringVar(&directory, "directory", envconfig.OrDefault("DIRECTORY", "/tmp"), "Output directory for the file storage backend")
	flag.StringVar(&storageBackend, "storage-backend", envconfig.OrDefault("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&outputFormat, "output-format", envconfig.OrDefault("OUTPUT_FORMAT", "png"), "Output format (png, jpeg, bmp, tiff or ppm)")
	flag.StringVar(&layout, "layout", envconfig.OrDefault("LAYOUT", "rgba"), "Pixel layout (rgb or rgba)")
	flag.IntVar(&amplification, "amplification", envconfig.OrDefault("AMPLIFICATION", diffimage.DefaultAmplification), "Delta amplification factor")
	flag.BoolVar(&regions, "regions", envconfig.OrDefault("REGIONS", false), "Report bounding rectangles of changed areas")
	flag.StringVar(&callbackURL, "callback-url", envconfig.OrDefault("CALLBACK_URL", ""), "Callback URL to send results to")

	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		log.Fatalf("baseline, target not specified")
	}

	format, err := render.ParseFormat(outputFormat)
	if err != nil {
		log.Fatalf("invalid output format: %v", err)
	}
	pixelLayout, err := pixel.ParseLayout(layout)
	if err != nil {
		log.Fatalf("invalid layout: %v", err)
	}

	ctx := context.Background()

	var s storage.Storage
	switch storageBackend {
	case "file":
		s, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: directory,
		})
		if err != nil {
			log.Fatalf("failed to create file storage backend: %v", err)
		}
	case "s3":
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: os.Getenv("S3_BUCKET"),
		})
		if err != nil {
			log.Fatalf("failed to create S3 storage backend: %v", err)
		}
	default:
		log.Fatalf("unknown storage backend: %s", storageBackend)
	}

	runner := &Runner{
		Storage:       s,
		Format:        format,
		Layout:        pixelLayout,
		Amplification: amplification,
		Regions:       regions,
		Now:           time.Now,
	}

	result, err := runner.Run(ctx, args[0], args[1])
	if err != nil {
		log.Fatalf("failed to diff: %v", err)
	}

	j, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal result: %v", err)
	}

	if callbackURL == "" {
		fmt.Println(string(j))
	} else {
		if err := callback(ctx, callbackURL, j); err != nil {
			log.Fatalf("failed to send callback: %v", err)
		}
	}
}

func (r *Runner) Run(ctx context.Context, baseline string, target string) (*DiffOutput, error) {
	c := comparison.New(ppm.NewDecoder(r.Layout))
	if err := c.LoadPair(ctx, r.Storage.Get, baseline, target); err != nil {
		return nil, err
	}

	differ := diffimage.NewChannelDiff(
		diffimage.WithLayout(r.Layout),
		diffimage.WithAmplification(r.Amplification),
		diffimage.WithRegions(r.Regions),
	)
	result, err := c.Run(ctx, differ)
	if err != nil {
		return nil, xerrors.Errorf("failed to calculate diff: %w", err)
	}

	timestamp := r.Now().Format("20060102150405")
	h := sha256.New()
	h.Write([]byte(baseline + target))
	hash := fmt.Sprintf("%x", h.Sum(nil))[:16]
	baseKey := fmt.Sprintf("PPMDiff/diff/%s/%s", hash, timestamp)

	output := &DiffOutput{
		Width:   result.Mask.Width(),
		Height:  result.Mask.Height(),
		Summary: result.Summary,
	}
	if r.Regions {
		output.Regions = diffimage.NewRegions(result.Regions)
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		path, err := r.upload(ctx, baseKey+"-mask", result.Mask)
		if err != nil {
			return xerrors.Errorf("failed to upload mask: %w", err)
		}
		output.MaskPath = path
		return nil
	})

	eg.Go(func() error {
		path, err := r.upload(ctx, baseKey+"-delta", result.Delta)
		if err != nil {
			return xerrors.Errorf("failed to upload delta: %w", err)
		}
		output.DeltaPath = path
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return output, nil
}

func (r *Runner) upload(ctx context.Context, key string, b *pixel.Buffer) (string, error) {
	data, err := render.Bytes(b, r.Format)
	if err != nil {
		return "", err
	}
	return r.Storage.Put(ctx, key+r.Format.Extension(), data)
}

func callback(ctx context.Context, callbackURL string, data []byte) error {
	request, err := http.NewRequestWithContext(ctx, "PATCH", callbackURL, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 5 * time.Second, // retry.Transport does not have perTryTimeout
		Transport: &retry.Transport{
			Base:          http.DefaultTransport,
			RetryStrategy: retry.NewExponentialBackOff(10*time.Millisecond, 1*time.Second, 3, nil),
			RetryOn:       retry.NewDefaultRetryOn(),
		},
	}

	response, err := client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		return xerrors.Errorf("callback returned %s", response.Status)
	}

	return nil
}
