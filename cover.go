// Cover image for bundle output: rows of hash-seeded rules suggesting
// lines of type, with the title and article count on a plain band.
package main

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	coverWidth  = 1200
	coverHeight = 1800

	coverMargin  = 80
	bandTop      = 650
	bandBottom   = 1150
	ruleStep     = 48
	ruleHeight   = 14
	ruleGap      = 24
	rulesClearAt = 50 // rules stop this far short of the band
)

type coverFaces struct {
	title font.Face
	meta  font.Face
}

// loadCoverFaces parses the embedded Go fonts once per process.
var loadCoverFaces = sync.OnceValues(func() (coverFaces, error) {
	title, err := loadFace(gobold.TTF, 64)
	if err != nil {
		return coverFaces{}, fmt.Errorf("loading bold font: %w", err)
	}
	meta, err := loadFace(goregular.TTF, 32)
	if err != nil {
		return coverFaces{}, fmt.Errorf("loading regular font: %w", err)
	}
	return coverFaces{title: title, meta: meta}, nil
})

// coverCanvas is a grayscale page being drawn.
type coverCanvas struct {
	img *image.Gray
}

// generateCover renders a PNG cover. The same title always yields the same
// image.
func generateCover(title string, articleCount int) ([]byte, error) {
	faces, err := loadCoverFaces()
	if err != nil {
		return nil, err
	}

	c := coverCanvas{img: image.NewGray(image.Rect(0, 0, coverWidth, coverHeight))}
	c.fill(c.img.Bounds(), 0xFF)
	c.rules(sha256.Sum256([]byte(title)))
	c.titleBand(title, countLabel(articleCount), faces)

	label := packagePublisher
	c.text(label, faces.meta, coverWidth-40-font.MeasureString(faces.meta, label).Ceil(), coverHeight-40)

	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, fmt.Errorf("encoding cover PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func countLabel(n int) string {
	if n == 1 {
		return "1 article"
	}
	return fmt.Sprintf("%d articles", n)
}

func (c coverCanvas) fill(r image.Rectangle, shade uint8) {
	draw.Draw(c.img, r.Intersect(c.img.Bounds()), image.NewUniform(color.Gray{shade}), image.Point{}, draw.Src)
}

// rules draws one to three strokes per row above and below the title band.
// Lengths and shades come from seed; the last stroke of a row is shortened
// to give a ragged edge.
func (c coverCanvas) rules(seed [32]byte) {
	right := coverWidth - coverMargin
	for row, y := 0, coverMargin; y+ruleHeight < coverHeight-coverMargin; y += ruleStep {
		if y+ruleHeight > bandTop-rulesClearAt && y < bandBottom+rulesClearAt {
			continue
		}
		strokes := 1 + int((seed[row%len(seed)]^byte(row*29))%3)
		x := coverMargin
		for s := range strokes {
			v := int(seed[(row+s*7)%len(seed)] ^ byte(row*13+s*41))
			w := (right-x)/(strokes-s) - ruleGap
			if s == strokes-1 {
				w -= v * w / 512
			}
			if w <= 0 || x >= right {
				break
			}
			c.fill(image.Rect(x, y, x+w, y+ruleHeight), uint8(0x30+v*0x80/255))
			x += w + ruleGap
		}
		row++
	}
}

// titleBand clears the middle of the cover and centres the wrapped title
// and the meta line in it, between two thin rules.
func (c coverCanvas) titleBand(title, meta string, faces coverFaces) {
	c.fill(image.Rect(0, bandTop, coverWidth, bandBottom), 0xFF)
	c.fill(image.Rect(coverMargin, bandTop+20, coverWidth-coverMargin, bandTop+21), 0x99)
	c.fill(image.Rect(coverMargin, bandBottom-21, coverWidth-coverMargin, bandBottom-20), 0x99)

	lines := wrapText(title, faces.title, coverWidth-coverMargin*2)
	step := faces.title.Metrics().Height.Ceil() + 8
	metaStep := faces.meta.Metrics().Height.Ceil() + 16

	y := bandTop + (bandBottom-bandTop-len(lines)*step-metaStep)/2 + faces.title.Metrics().Ascent.Ceil()
	for _, line := range lines {
		c.centred(line, faces.title, y)
		y += step
	}
	c.centred(meta, faces.meta, y+16)
}

func (c coverCanvas) centred(s string, face font.Face, y int) {
	c.text(s, face, (coverWidth-font.MeasureString(face, s).Ceil())/2, y)
}

// text draws s in black with its baseline at y.
func (c coverCanvas) text(s string, face font.Face, x, y int) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// wrapText greedily packs the words of text into lines no wider than
// maxWidth pixels. A word wider than maxWidth gets a line of its own.
func wrapText(text string, face font.Face, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}
	lines := []string{words[0]}
	for _, w := range words[1:] {
		last := &lines[len(lines)-1]
		if font.MeasureString(face, *last+" "+w).Ceil() <= maxWidth {
			*last += " " + w
			continue
		}
		lines = append(lines, w)
	}
	return lines
}

// loadFace returns a face for an OpenType font at sizePt points and 72 DPI.
func loadFace(ttf []byte, sizePt float64) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePt,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
