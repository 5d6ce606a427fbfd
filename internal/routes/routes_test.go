package routes_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"ppm-diff/internal/routes"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	black2x2 = "P3\n2 2\n255\n0 0 0 0 0 0\n0 0 0 0 0 0\n"
	red2x2   = "P3\n2 2\n255\n10 0 0 0 0 0\n0 0 0 0 0 0\n"
	black1x1 = "P3\n1 1\n255\n0 0 0\n"
)

func newMetrics(t *testing.T) *routes.Metrics {
	t.Helper()
	m, err := routes.NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func newMultipartRequest(t *testing.T, path string, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := writer.CreateFormFile(name, name+".ppm")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	request := httptest.NewRequest(http.MethodPost, path, &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	return request
}

func TestDiff(t *testing.T) {
	handler := routes.Diff(newMetrics(t), routes.DefaultMaxUploadBytes)

	recorder := httptest.NewRecorder()
	handler(recorder, newMultipartRequest(t, "/diff", map[string]string{
		"baseline": black2x2,
		"target":   red2x2,
	}, map[string]string{
		"regions": "true",
	}))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response routes.DiffResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{0.25, 1.0 / 12}, []float64{response.PixelDiffRatio, response.ChannelDiffRatio}); diff != "" {
		t.Errorf("ratios (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 2, 1, 1}, []int{response.Width, response.Height, response.DifferentPixels, response.DifferentChannels}); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, len(response.Regions)); diff != "" {
		t.Errorf("regions (-want +got):\n%s", diff)
	}

	delta, err := base64.StdEncoding.DecodeString(response.Delta)
	if err != nil {
		t.Fatal(err)
	}
	img, name, err := image.Decode(bytes.NewReader(delta))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("png", name); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if diff := cmp.Diff([]uint32{100, 0, 0}, []uint32{r >> 8, g >> 8, b >> 8}); diff != "" {
		t.Errorf("delta pixel (-want +got):\n%s", diff)
	}
}

func TestDiff_Errors(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		fields map[string]string
		want   int
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string]string{"baseline": black2x2, "target": black1x1},
			nil,
			http.StatusUnprocessableEntity,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string]string{"baseline": black2x2, "target": "P6\n1 1\n255\n"},
			nil,
			http.StatusBadRequest,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string]string{"baseline": black2x2},
			nil,
			http.StatusBadRequest,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string]string{"baseline": black2x2, "target": black2x2},
			map[string]string{"format": "gif"},
			http.StatusBadRequest,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string]string{"baseline": black2x2, "target": black2x2},
			map[string]string{"amplification": "0"},
			http.StatusBadRequest,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			map[string]string{"baseline": black2x2, "target": black2x2},
			map[string]string{"layout": "cmyk"},
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		name := tt.name
		files := tt.files
		fields := tt.fields
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			recorder := httptest.NewRecorder()
			routes.Diff(newMetrics(t), routes.DefaultMaxUploadBytes)(recorder, newMultipartRequest(t, "/diff", files, fields))
			if diff := cmp.Diff(want, recorder.Code); diff != "" {
				t.Errorf("(-want +got):\n%s\n%s", diff, recorder.Body.String())
			}
		})
	}
}

func TestDiff_TooLarge(t *testing.T) {
	recorder := httptest.NewRecorder()
	routes.Diff(newMetrics(t), 16)(recorder, newMultipartRequest(t, "/diff", map[string]string{
		"baseline": black2x2,
		"target":   black2x2,
	}, nil))
	if diff := cmp.Diff(http.StatusRequestEntityTooLarge, recorder.Code); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDecode(t *testing.T) {
	recorder := httptest.NewRecorder()
	routes.Decode(newMetrics(t), routes.DefaultMaxUploadBytes)(recorder, newMultipartRequest(t, "/decode", map[string]string{
		"file": "P3\n1 1\n255\n255 0 0\n",
	}, map[string]string{
		"format": "ppm",
	}))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if diff := cmp.Diff("image/x-portable-pixmap", recorder.Header().Get("Content-Type")); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("P3\n1 1\n255\n255 0 0\n", recorder.Body.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDecode_FormatError(t *testing.T) {
	recorder := httptest.NewRecorder()
	routes.Decode(newMetrics(t), routes.DefaultMaxUploadBytes)(recorder, newMultipartRequest(t, "/decode", map[string]string{
		"file": "P3\n1 1\n255\n",
	}, nil))

	if diff := cmp.Diff(http.StatusBadRequest, recorder.Code); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}
