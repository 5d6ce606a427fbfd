// Package routes holds the HTTP handlers of the ppm-diff server.
package routes

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	diffimage "ppm-diff/internal/diff/image"
	"ppm-diff/internal/pixel"
	"ppm-diff/internal/ppm"
	"ppm-diff/internal/render"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/xerrors"
)

const DefaultMaxUploadBytes = 32 << 20

var tracer = otel.Tracer("ppm-diff/internal/routes")

type Metrics struct {
	decodedPixels  metric.Int64Counter
	diffPixelRatio metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	decodedPixels, err := meter.Int64Counter("ppm_decoded_pixels_total")
	if err != nil {
		return nil, xerrors.Errorf("failed to create counter: %w", err)
	}
	diffPixelRatio, err := meter.Float64Histogram("ppm_diff_pixel_ratio")
	if err != nil {
		return nil, xerrors.Errorf("failed to create histogram: %w", err)
	}
	return &Metrics{
		decodedPixels:  decodedPixels,
		diffPixelRatio: diffPixelRatio,
	}, nil
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string {
	return e.err.Error()
}

func (e *badRequestError) Unwrap() error {
	return e.err
}

func badRequest(format string, args ...any) error {
	return &badRequestError{err: fmt.Errorf(format, args...)}
}

func statusCode(err error) int {
	var formatErr *ppm.FormatError
	var mismatchErr *diffimage.DimensionMismatchError
	var badRequestErr *badRequestError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &formatErr), errors.As(err, &badRequestErr):
		return http.StatusBadRequest
	case errors.As(err, &mismatchErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		slog.Error(fmt.Sprintf("failed to handle request: %s", err))
		http.Error(w, http.StatusText(code), code)
		return
	}
	slog.Debug(fmt.Sprintf("rejected request: %s", err))
	http.Error(w, err.Error(), code)
}

func parseMultipart(w http.ResponseWriter, r *http.Request, maxUploadBytes int64) error {
	if r.ContentLength > maxUploadBytes {
		return &http.MaxBytesError{Limit: maxUploadBytes}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return badRequest("invalid multipart form: %w", err)
	}
	return nil
}

func readFormFile(r *http.Request, name string) ([]byte, error) {
	file, _, err := r.FormFile(name)
	if err != nil {
		return nil, badRequest("missing form file %q: %w", name, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, xerrors.Errorf("failed to read form file %q: %w", name, err)
	}
	return data, nil
}

type options struct {
	format        render.Format
	layout        pixel.Layout
	amplification int
	regions       bool
}

func parseOptions(r *http.Request) (options, error) {
	o := options{
		format:        render.PNG,
		layout:        pixel.RGBA,
		amplification: diffimage.DefaultAmplification,
	}

	if v := r.FormValue("format"); v != "" {
		f, err := render.ParseFormat(v)
		if err != nil {
			return o, badRequest("%w", err)
		}
		o.format = f
	}
	if v := r.FormValue("layout"); v != "" {
		l, err := pixel.ParseLayout(v)
		if err != nil {
			return o, badRequest("%w", err)
		}
		o.layout = l
	}
	if v := r.FormValue("amplification"); v != "" {
		a, err := strconv.Atoi(v)
		if err != nil || a < 1 {
			return o, badRequest("invalid amplification: %s", v)
		}
		o.amplification = a
	}
	if v := r.FormValue("regions"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return o, badRequest("invalid regions: %s", v)
		}
		o.regions = b
	}

	return o, nil
}
