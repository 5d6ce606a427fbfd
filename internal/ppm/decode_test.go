package ppm_test

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"ppm-diff/internal/pixel"
	"ppm-diff/internal/ppm"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode(t *testing.T) {
	type in struct {
		layout pixel.Layout
		text   string
	}

	type want struct {
		width  int
		height int
		pix    []byte
	}

	tests := []struct {
		name string
		in   in
		want want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				pixel.RGB,
				"P3\n1 1\n255\n255 0 0\n",
			},
			want{1, 1, []byte{255, 0, 0}},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				pixel.RGBA,
				"P3\n1 1\n255\n255 0 0\n",
			},
			want{1, 1, []byte{255, 0, 0, 255}},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				pixel.RGB,
				"P3\r\n\r\n2 2\r\n15\r\n0 15 7  8 1 14\r\n\r\n15 15 15 0 0 0\r\n",
			},
			want{2, 2, []byte{
				0, 255, 119, 136, 17, 238,
				255, 255, 255, 0, 0, 0,
			}},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				pixel.RGB,
				"P3\n# created by hand\n1 2\n255\n1 2 3 99 99\n4 5 6\nextra line\n",
			},
			want{1, 2, []byte{1, 2, 3, 4, 5, 6}},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				pixel.RGB,
				"P3\n1 1\n100\n-5 150 50\n",
			},
			want{1, 1, []byte{0, 255, 128}},
		},
	}

	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := ppm.NewDecoder(in.layout).Decode(in.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(want.width, got.Width()); diff != "" {
				t.Errorf("width (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.height, got.Height()); diff != "" {
				t.Errorf("height (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want.pix, got.Bytes()); diff != "" {
				t.Errorf("pix (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_FormatError(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantReason error
		wantLine   int
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"P6\n1 1\n255\n255 0 0\n",
			ppm.ErrBadMagic,
			1,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"",
			ppm.ErrBadMagic,
			0,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"P3\n0 1\n255\n",
			ppm.ErrBadDimensions,
			2,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"P3\nwide 1\n255\n1 2 3\n",
			ppm.ErrBadDimensions,
			2,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"P3\n1\n255\n1 2 3\n",
			ppm.ErrBadDimensions,
			2,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"P3\n1 1\n0\n1 2 3\n",
			ppm.ErrBadMaxValue,
			3,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"P3\n1 1\n",
			ppm.ErrBadMaxValue,
			0,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"P3\n1 1\n255\n1 x 3\n",
			ppm.ErrBadSample,
			4,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"P3\n2 1\n255\n1 2 3 4 5\n",
			ppm.ErrTruncated,
			4,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"P3\n1 3\n255\n1 2 3\n4 5 6\n",
			ppm.ErrTruncated,
			5,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"P3\n100000 1\n255\n1 2 3\n",
			ppm.ErrTruncated,
			4,
		},
	}

	for _, tt := range tests {
		name := tt.name
		in := tt.in
		wantReason := tt.wantReason
		wantLine := tt.wantLine
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := ppm.NewDecoder(pixel.RGB).Decode(in)
			if got != nil {
				t.Errorf("Expected no buffer, got %dx%d", got.Width(), got.Height())
			}
			var formatErr *ppm.FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("Expected *ppm.FormatError, got %v", err)
			}
			if !errors.Is(err, wantReason) {
				t.Errorf("Expected reason %q, got %q", wantReason, formatErr.Reason)
			}
			if diff := cmp.Diff(wantLine, formatErr.Line); diff != "" {
				t.Errorf("line (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_IdentityAtMaxValue255(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("P3\n256 1\n255\n")
	want := make([]byte, 0, 256*3)
	for v := 0; v < 256; v++ {
		fmt.Fprintf(&sb, "%d %d %d ", v, v, v)
		want = append(want, byte(v), byte(v), byte(v))
	}
	sb.WriteString("\n")

	got, err := ppm.NewDecoder(pixel.RGB).Decode(sb.String())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got.Bytes()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDecode_LargeMaxValue(t *testing.T) {
	got, err := ppm.NewDecoder(pixel.RGB).Decode("P3\n1 1\n200000\n0 100000 200000\n")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0, 128, 255}, got.Bytes()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDecodeConfig(t *testing.T) {
	config, err := ppm.DecodeConfig(strings.NewReader("P3\n# comment\n3 2\n255\n"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{3, 2}, []int{config.Width, config.Height}); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestImageDecodeRegistration(t *testing.T) {
	img, format, err := image.Decode(bytes.NewReader([]byte("P3\n1 1\n255\n10 20 30\n")))
	if err != nil {
		t.Fatal(err)
	}
	if format != "ppm" {
		t.Errorf("Expected format ppm, got %s", format)
	}
	r, g, b, a := img.At(0, 0).RGBA()
	if diff := cmp.Diff([]uint32{10 * 0x101, 20 * 0x101, 30 * 0x101, 0xffff}, []uint32{r, g, b, a}); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func BenchmarkDecode(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("P3\n640 480\n255\n")
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			fmt.Fprintf(&sb, "%d %d %d ", x%256, y%256, (x+y)%256)
		}
		sb.WriteString("\n")
	}
	text := sb.String()
	decoder := ppm.NewDecoder(pixel.RGBA)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := decoder.Decode(text); err != nil {
			b.Fatal(err)
		}
	}
}
