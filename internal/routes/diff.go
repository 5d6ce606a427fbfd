package routes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"ppm-diff/internal/comparison"
	diffimage "ppm-diff/internal/diff/image"
	"ppm-diff/internal/ppm"
	"ppm-diff/internal/render"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/xerrors"
)

type DiffResponse struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Mask   string `json:"mask"`
	Delta  string `json:"delta"`
	diffimage.Summary
	Regions []diffimage.Region `json:"regions,omitempty"`
}

// Diff compares the multipart files "baseline" and "target" and responds
// with the encoded mask and delta rasters.
func Diff(metrics *Metrics, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response, err := diff(w, r, metrics, maxUploadBytes)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

func diff(w http.ResponseWriter, r *http.Request, metrics *Metrics, maxUploadBytes int64) (*DiffResponse, error) {
	if err := parseMultipart(w, r, maxUploadBytes); err != nil {
		return nil, err
	}
	o, err := parseOptions(r)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(r.Context(), "decode")
	c := comparison.New(ppm.NewDecoder(o.layout))
	err = c.LoadPair(ctx, func(ctx context.Context, name string) ([]byte, error) {
		return readFormFile(r, name)
	}, "baseline", "target")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	for _, side := range []comparison.Side{comparison.Baseline, comparison.Target} {
		b := c.Image(side)
		metrics.decodedPixels.Add(ctx, int64(b.Width()*b.Height()))
	}
	span.End()

	ctx, span = tracer.Start(r.Context(), "diff")
	defer span.End()

	differ := diffimage.NewChannelDiff(
		diffimage.WithLayout(o.layout),
		diffimage.WithAmplification(o.amplification),
		diffimage.WithRegions(o.regions),
	)
	result, err := c.Run(ctx, differ)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Float64("pixel_diff_ratio", result.Summary.PixelDiffRatio),
		attribute.Float64("channel_diff_ratio", result.Summary.ChannelDiffRatio),
	)
	metrics.diffPixelRatio.Record(ctx, result.Summary.PixelDiffRatio)

	mask, err := render.Bytes(result.Mask, o.format)
	if err != nil {
		return nil, xerrors.Errorf("failed to render mask: %w", err)
	}
	delta, err := render.Bytes(result.Delta, o.format)
	if err != nil {
		return nil, xerrors.Errorf("failed to render delta: %w", err)
	}

	response := &DiffResponse{
		Format:  string(o.format),
		Width:   result.Mask.Width(),
		Height:  result.Mask.Height(),
		Mask:    base64.StdEncoding.EncodeToString(mask),
		Delta:   base64.StdEncoding.EncodeToString(delta),
		Summary: result.Summary,
	}
	if o.regions {
		response.Regions = diffimage.NewRegions(result.Regions)
	}
	return response, nil
}
