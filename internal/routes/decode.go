package routes

import (
	"log/slog"
	"net/http"
	"ppm-diff/internal/ppm"
	"ppm-diff/internal/render"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/xerrors"
)

// Decode renders the multipart file "file" in the requested format.
func Decode(metrics *Metrics, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseMultipart(w, r, maxUploadBytes); err != nil {
			writeError(w, err)
			return
		}
		o, err := parseOptions(r)
		if err != nil {
			writeError(w, err)
			return
		}
		data, err := readFormFile(r, "file")
		if err != nil {
			writeError(w, err)
			return
		}

		ctx, span := tracer.Start(r.Context(), "decode")
		b, err := ppm.NewDecoder(o.layout).Decode(string(data))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.End()
			writeError(w, err)
			return
		}
		span.SetAttributes(attribute.Int("width", b.Width()), attribute.Int("height", b.Height()))
		metrics.decodedPixels.Add(ctx, int64(b.Width()*b.Height()))
		span.End()

		encoded, err := render.Bytes(b, o.format)
		if err != nil {
			writeError(w, xerrors.Errorf("failed to render image: %w", err))
			return
		}

		w.Header().Set("Content-Type", o.format.ContentType())
		w.Header().Set("Content-Length", strconv.Itoa(len(encoded)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(encoded); err != nil {
			slog.Debug("failed to write response", "error", err)
		}
	}
}
