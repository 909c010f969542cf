// Package caption burns a word-wrapped caption onto an encoded raster image.
// The layout is deliberately simple: one font, white fill over a soft black
// shadow, lines wrapped to 80% of the image width and centered both ways.
package caption

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/heypicture/heypicture/internal/log"
	"github.com/samber/do"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ErrUndecodable is returned when the source bytes are not a decodable image.
// Callers are expected to fall back to the original bytes rather than fail.
var ErrUndecodable = errors.New("caption: source image is not decodable")

const (
	widthBudgetRatio = 0.8
	lineHeightRatio  = 1.2
	minFontSize      = 20
	fontSizeDivisor  = 20
	shadowOffset     = 2
	shadowSigma      = 2.5
)

var shadowColor = color.NRGBA{A: 170}

type Compositor struct {
	fnt *sfnt.Font
}

func NewCompositor(i *do.Injector) (*Compositor, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("caption: parsing bundled font: %w", err)
	}
	return &Compositor{fnt: fnt}, nil
}

// FontSize scales caption legibility with image resolution and never drops
// below a readable floor.
func FontSize(w int) float64 {
	return math.Max(minFontSize, float64(w)/fontSizeDivisor)
}

func LineHeight(size float64) float64 {
	return size * lineHeightRatio
}

// BlockStart returns the baseline of the first line such that the whole block
// of lines is vertically centered on a canvas of height h.
func BlockStart(h, lines int, lineHeight float64) float64 {
	return float64(h)/2 - float64(lines-1)*lineHeight/2
}

// WrapLines greedily packs whitespace-split words into lines whose advance
// width stays within budget. A line is only closed once it holds at least one
// word, so a single word wider than the budget overflows rather than splits.
func WrapLines(face font.Face, caption string, budget fixed.Int26_6) []string {
	var lines []string
	var current string
	for _, word := range strings.Fields(caption) {
		prospective := current + word + " "
		if font.MeasureString(face, prospective) > budget && current != "" {
			lines = append(lines, strings.TrimRight(current, " "))
			current = word + " "
			continue
		}
		current = prospective
	}
	if current != "" {
		lines = append(lines, strings.TrimRight(current, " "))
	}
	return lines
}

// Compose overlays caption on the encoded image src and re-encodes it in the
// source's format. A whitespace-only caption returns src untouched. A source
// that cannot be decoded yields ErrUndecodable.
func (c *Compositor) Compose(ctx context.Context, src []byte, caption string) ([]byte, error) {
	if strings.TrimSpace(caption) == "" {
		return src, nil
	}

	base, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	bounds := base.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	size := FontSize(w)

	face, err := opentype.NewFace(c.fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("caption: sizing font face: %w", err)
	}
	defer face.Close()

	budget := fixedFrom(widthBudgetRatio * float64(w))
	lines := WrapLines(face, caption, budget)

	lineHeight := LineHeight(size)
	startY := BlockStart(h, len(lines), lineHeight)

	log.FromContextOrDiscard(ctx).Debug("compositing caption",
		"width", w, "height", h, "font_size", size, "lines", len(lines))

	canvas := imaging.Clone(base)

	// Shadow pass: all lines into a transparent layer, offset down and to the
	// right, blurred once, then composited under the fill.
	shadow := image.NewNRGBA(bounds)
	drawLines(shadow, face, lines, shadowColor, w, startY, lineHeight, shadowOffset)
	draw.Draw(canvas, bounds, imaging.Blur(shadow, shadowSigma), bounds.Min, draw.Over)

	drawLines(canvas, face, lines, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, w, startY, lineHeight, 0)

	var out bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&out, canvas, nil)
	default:
		err = png.Encode(&out, canvas)
	}
	if err != nil {
		return nil, fmt.Errorf("caption: encoding %s: %w", format, err)
	}
	return out.Bytes(), nil
}

func drawLines(dst draw.Image, face font.Face, lines []string, col color.Color, w int, startY, lineHeight float64, offset float64) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
	}
	y := startY
	for _, line := range lines {
		advance := font.MeasureString(face, line)
		x := (float64(w)-fixedTo(advance))/2 + offset
		d.Dot = fixed.Point26_6{X: fixedFrom(x), Y: fixedFrom(y + offset)}
		d.DrawString(line)
		y += lineHeight
	}
}

func fixedFrom(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func fixedTo(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
