package main

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
)

// makePNG creates a solid-color PNG image at the given dimensions.
func makePNG(w, h int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

// makeJPEG creates a solid-color JPEG image at the given dimensions.
func makeJPEG(w, h int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func decodeJPEGDimensions(data []byte) (w, h int) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func animatedGIF() []byte {
	palette := color.Palette{color.White, color.Black}
	g := &gif.GIF{
		Image: []*image.Paletted{
			image.NewPaletted(image.Rect(0, 0, 2, 2), palette),
			image.NewPaletted(image.Rect(0, 0, 2, 2), palette),
		},
		Delay: []int{10, 10},
	}
	var buf bytes.Buffer
	gif.EncodeAll(&buf, g)
	return buf.Bytes()
}

func TestOptimizeImage_MaxWidthOnly(t *testing.T) {
	opts := optimizeOpts{maxWidth: 800, quality: 60}

	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"wide image is scaled", 1200, 900, 800, 600},
		{"tall narrow image is kept", 400, 1200, 400, 1200},
		{"small image is kept", 200, 150, 200, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := optimizeImage(makePNG(tt.w, tt.h, color.NRGBA{255, 0, 0, 255}), "image/png", opts, zerolog.Nop())
			if !ok {
				t.Fatal("expected optimized output")
			}
			w, h := decodeJPEGDimensions(out)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestOptimizeImage_Grayscale(t *testing.T) {
	opts := optimizeOpts{maxWidth: 800, quality: 60, grayscale: true}
	out, ok := optimizeImage(makePNG(100, 100, color.NRGBA{255, 0, 0, 255}), "image/png", opts, zerolog.Nop())
	if !ok {
		t.Fatal("expected optimized output")
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if _, isGray := img.(*image.Gray); !isGray {
		t.Errorf("decoded %T, want *image.Gray", img)
	}
}

func TestOptimizeImage_Passthrough(t *testing.T) {
	opts := optimizeOpts{maxWidth: 800, quality: 60}
	tests := []struct {
		name string
		data []byte
		mime string
	}{
		{"svg", []byte("<svg></svg>"), "image/svg+xml"},
		{"avif", []byte{0x00}, "image/avif"},
		{"animated gif", animatedGIF(), "image/gif"},
		{"invalid data", []byte("not an image"), "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := optimizeImage(tt.data, tt.mime, opts, zerolog.Nop())
			if ok || out != nil {
				t.Error("expected passthrough")
			}
		})
	}
}

func TestOptimizeImage_StaticGIF(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 100, 100), color.Palette{color.White, color.Black})
	var buf bytes.Buffer
	gif.Encode(&buf, img, nil)
	out, ok := optimizeImage(buf.Bytes(), "image/gif", optimizeOpts{maxWidth: 800, quality: 60}, zerolog.Nop())
	if !ok {
		t.Fatal("static GIF should be optimized")
	}
	if w, _ := decodeJPEGDimensions(out); w != 100 {
		t.Errorf("expected a 100px wide JPEG, got width %d", w)
	}
}

func TestIsAnimatedGIF(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.White, color.Black})
	var buf bytes.Buffer
	gif.Encode(&buf, img, nil)

	if isAnimatedGIF(buf.Bytes()) {
		t.Error("single-frame GIF should not be animated")
	}
	if !isAnimatedGIF(animatedGIF()) {
		t.Error("multi-frame GIF should be animated")
	}
	if isAnimatedGIF([]byte("not a gif")) {
		t.Error("invalid data should return false")
	}
}

func TestOptimizeOptsFrom(t *testing.T) {
	if optimizeOptsFrom(ImageConfig{MaxWidth: 600}) != nil {
		t.Error("expected nil options when optimization is off")
	}
	opts := optimizeOptsFrom(ImageConfig{Optimize: true, MaxWidth: 600, Quality: 70, Grayscale: true})
	if opts == nil || opts.maxWidth != 600 || opts.quality != 70 || !opts.grayscale {
		t.Errorf("unexpected options %+v", opts)
	}
}
