// Image optimization for e-readers: downscale, optionally grayscale, and
// re-encode as JPEG.
package main

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// resize downscales an image using BiLinear resampling.
func resize(src image.Image, dstW, dstH int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func toGrayscale(src image.Image) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return gray
}

// flattenAlpha composites src onto a white background.
func flattenAlpha(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	white := image.NewUniform(color.White)
	draw.Draw(dst, b, white, image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}

func isAnimatedGIF(data []byte) bool {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return len(g.Image) > 1
}

type optimizeOpts struct {
	maxWidth  int
	quality   int
	grayscale bool
}

func optimizeOptsFrom(cfg ImageConfig) *optimizeOpts {
	if !cfg.Optimize {
		return nil
	}
	return &optimizeOpts{maxWidth: cfg.MaxWidth, quality: cfg.Quality, grayscale: cfg.Grayscale}
}

// optimizeImage re-encodes data as a JPEG no wider than opts.maxWidth.
// ok is false when the image should be passed through unchanged: vector
// and AVIF images, animated GIFs and anything that fails to decode.
func optimizeImage(data []byte, mime string, opts optimizeOpts, log zerolog.Logger) (out []byte, ok bool) {
	switch {
	case strings.Contains(mime, "svg"), strings.Contains(mime, "avif"):
		return nil, false
	case strings.Contains(mime, "gif") && isAnimatedGIF(data):
		return nil, false
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warn().Err(err).Str("mime", mime).Msg("could not decode image")
		return nil, false
	}

	// JPEG has no alpha channel.
	img = flattenAlpha(img)

	// Downscale by width only (never upscale)
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if opts.maxWidth > 0 && w > opts.maxWidth {
		ratio := float64(opts.maxWidth) / float64(w)
		newH := int(math.Round(float64(h) * ratio))
		if newH < 1 {
			newH = 1
		}
		img = resize(img, opts.maxWidth, newH)
	}

	var encImg image.Image = img
	if opts.grayscale {
		encImg = toGrayscale(img)
	}

	quality := opts.quality
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, encImg, &jpeg.Options{Quality: quality}); err != nil {
		log.Warn().Err(err).Msg("JPEG encode failed")
		return nil, false
	}
	return buf.Bytes(), true
}
