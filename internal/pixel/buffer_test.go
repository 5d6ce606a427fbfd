package pixel_test

import (
	"fmt"
	"image/color"
	"ppm-diff/internal/pixel"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew(t *testing.T) {
	type in struct {
		width  int
		height int
		layout pixel.Layout
		pix    []byte
	}

	tests := []struct {
		name    string
		in      in
		wantErr bool
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{1, 1, pixel.RGB, []byte{1, 2, 3}},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{1, 1, pixel.RGBA, []byte{1, 2, 3, 255}},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{1, 1, pixel.RGBA, []byte{1, 2, 3, 0}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{2, 1, pixel.RGB, []byte{1, 2, 3}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{0, 1, pixel.RGB, []byte{}},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{1, 1, pixel.Layout(2), []byte{1, 2}},
			true,
		},
	}

	for _, tt := range tests {
		name := tt.name
		in := tt.in
		wantErr := tt.wantErr
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := pixel.New(in.width, in.height, in.layout, in.pix)
			if diff := cmp.Diff(wantErr, err != nil); diff != "" {
				t.Errorf("(-want +got):\n%s (err: %v)", diff, err)
			}
		})
	}
}

func TestBuffer_Accessors(t *testing.T) {
	pix := []byte{
		10, 20, 30, 40, 50, 60,
		70, 80, 90, 100, 110, 120,
	}
	b, err := pixel.New(2, 2, pixel.RGB, pix)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("RGB", func(t *testing.T) {
		r, g, bl := b.RGB(1, 1)
		if diff := cmp.Diff([]uint8{100, 110, 120}, []uint8{r, g, bl}); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("At", func(t *testing.T) {
		if diff := cmp.Diff(color.Color(color.RGBA{R: 70, G: 80, B: 90, A: 255}), b.At(0, 1)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("BytesIsCopy", func(t *testing.T) {
		out := b.Bytes()
		out[0] = 0
		r, _, _ := b.RGB(0, 0)
		if r != 10 {
			t.Errorf("Expected buffer to be unaffected, got red %d", r)
		}
	})

	t.Run("ToRGBA", func(t *testing.T) {
		img := b.ToRGBA()
		want := []byte{
			10, 20, 30, 255, 40, 50, 60, 255,
			70, 80, 90, 255, 100, 110, 120, 255,
		}
		if diff := cmp.Diff(want, img.Pix); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})
}

func TestBuffer_EqualAcrossLayouts(t *testing.T) {
	rgb, err := pixel.New(1, 2, pixel.RGB, []byte{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	rgba, err := pixel.New(1, 2, pixel.RGBA, []byte{1, 2, 3, 255, 4, 5, 6, 255})
	if err != nil {
		t.Fatal(err)
	}
	other, err := pixel.New(1, 2, pixel.RGBA, []byte{1, 2, 3, 255, 4, 5, 7, 255})
	if err != nil {
		t.Fatal(err)
	}

	if !rgb.Equal(rgba) {
		t.Errorf("Expected RGB and RGBA buffers with the same content to be equal")
	}
	if rgb.Equal(other) {
		t.Errorf("Expected buffers with different content not to be equal")
	}
}

func TestAlloc(t *testing.T) {
	if diff := cmp.Diff([]byte{0, 0, 0, 255, 0, 0, 0, 255}, pixel.Alloc(2, 1, pixel.RGBA)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{0, 0, 0, 0, 0, 0}, pixel.Alloc(1, 2, pixel.RGB)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestParseLayout(t *testing.T) {
	for _, l := range []pixel.Layout{pixel.RGB, pixel.RGBA} {
		got, err := pixel.ParseLayout(l.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != l {
			t.Errorf("Expected %v, got %v", l, got)
		}
	}
	if _, err := pixel.ParseLayout("bgr"); err == nil {
		t.Errorf("Expected error for unknown layout")
	}
}
