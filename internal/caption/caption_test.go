package caption

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

func testFace(t *testing.T, size float64) font.Face {
	t.Helper()
	fnt, err := opentype.Parse(goregular.TTF)
	require.NoError(t, err)
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72})
	require.NoError(t, err)
	t.Cleanup(func() { _ = face.Close() })
	return face
}

func encodeImage(t *testing.T, format string, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 30, G: 90, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	default:
		t.Fatalf("unsupported format %s", format)
	}
	require.NoError(t, err)
	return buf.Bytes()
}

func TestFontSize(t *testing.T) {
	tests := []struct {
		name  string
		width int
		want  float64
	}{
		{"small image hits the floor", 100, 20},
		{"floor boundary", 400, 20},
		{"scales with width", 800, 40},
		{"large image", 2000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FontSize(tt.width))
		})
	}
}

func TestLineHeight(t *testing.T) {
	for _, size := range []float64{20, 37.5, 100} {
		assert.Equal(t, size*1.2, LineHeight(size))
	}
}

func TestBlockStart(t *testing.T) {
	t.Run("single line sits on the vertical center", func(t *testing.T) {
		assert.Equal(t, 200.0, BlockStart(400, 1, 24))
	})
	t.Run("block of three is centered as a whole", func(t *testing.T) {
		assert.Equal(t, 176.0, BlockStart(400, 3, 24))
	})
	t.Run("consecutive baselines differ by exactly one line height", func(t *testing.T) {
		lh := LineHeight(20)
		first := BlockStart(400, 4, lh)
		second := BlockStart(400, 4, lh) + lh
		assert.Equal(t, lh, second-first)
	})
}

func TestWrapLines(t *testing.T) {
	face := testFace(t, 20)

	t.Run("long caption wraps into multiple lines within budget", func(t *testing.T) {
		words := make([]string, 50)
		for n := range words {
			words[n] = "word"
		}
		capt := strings.Join(words, " ")
		budget := fixed.I(320) // 0.8 of a 400px-wide image

		lines := WrapLines(face, capt, budget)
		require.Greater(t, len(lines), 1)
		for _, line := range lines {
			assert.LessOrEqual(t, font.MeasureString(face, line).Ceil(), 320, "line %q over budget", line)
		}
	})

	t.Run("no word is dropped, reordered, or duplicated", func(t *testing.T) {
		capt := "the quick   brown fox\tjumps over the lazy dog again and again until done"
		lines := WrapLines(face, capt, fixed.I(120))
		assert.Equal(t, strings.Fields(capt), strings.Fields(strings.Join(lines, " ")))
	})

	t.Run("a single word wider than the budget overflows alone", func(t *testing.T) {
		lines := WrapLines(face, "incomprehensibilities", fixed.I(30))
		require.Len(t, lines, 1)
		assert.Equal(t, "incomprehensibilities", lines[0])
	})

	t.Run("two oversized words land on separate lines", func(t *testing.T) {
		lines := WrapLines(face, "incomprehensibilities antidisestablishmentarianism", fixed.I(30))
		assert.Equal(t, []string{"incomprehensibilities", "antidisestablishmentarianism"}, lines)
	})

	t.Run("lines carry no trailing whitespace", func(t *testing.T) {
		lines := WrapLines(face, "a few short words to wrap", fixed.I(60))
		for _, line := range lines {
			assert.Equal(t, strings.TrimRight(line, " "), line)
		}
	})

	t.Run("empty caption yields no lines", func(t *testing.T) {
		assert.Empty(t, WrapLines(face, "   ", fixed.I(320)))
	})
}

func TestCompose(t *testing.T) {
	ctx := context.Background()
	compositor, err := NewCompositor(nil)
	require.NoError(t, err)

	t.Run("whitespace-only caption passes the source through untouched", func(t *testing.T) {
		src := encodeImage(t, "png", 100, 80)
		for _, capt := range []string{"", "   ", "\t\n"} {
			out, err := compositor.Compose(ctx, src, capt)
			require.NoError(t, err)
			assert.Equal(t, src, out)
		}
	})

	t.Run("undecodable source reports ErrUndecodable", func(t *testing.T) {
		_, err := compositor.Compose(ctx, []byte("definitely not an image"), "hello")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUndecodable)
	})

	t.Run("captioned output keeps the source dimensions and format", func(t *testing.T) {
		src := encodeImage(t, "png", 400, 300)
		out, err := compositor.Compose(ctx, src, "Sale Now")
		require.NoError(t, err)
		assert.NotEqual(t, src, out)

		decoded, format, err := image.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, 400, decoded.Bounds().Dx())
		assert.Equal(t, 300, decoded.Bounds().Dy())
	})

	t.Run("jpeg sources re-encode as jpeg", func(t *testing.T) {
		src := encodeImage(t, "jpeg", 120, 90)
		out, err := compositor.Compose(ctx, src, "Sale Now")
		require.NoError(t, err)

		_, format, err := image.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
	})

	t.Run("overlay actually lights up pixels near the center", func(t *testing.T) {
		src := encodeImage(t, "png", 400, 300)
		out, err := compositor.Compose(ctx, src, "Sale Now")
		require.NoError(t, err)

		decoded, _, err := image.Decode(bytes.NewReader(out))
		require.NoError(t, err)

		found := false
		for y := 100; y < 200 && !found; y++ {
			for x := 0; x < 400; x++ {
				r, g, b, _ := decoded.At(x, y).RGBA()
				if r > 0xe000 && g > 0xe000 && b > 0xe000 {
					found = true
					break
				}
			}
		}
		assert.True(t, found, "expected white caption pixels in the central band")
	})
}
