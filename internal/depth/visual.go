package depth

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/chewxy/math32"
	"github.com/ftrvxmtrx/tga"
)

// VisualOptions controls the grayscale mapping of the visual depth encoding.
type VisualOptions struct {
	// MinDepth and MaxDepth bound the grayscale ramp in meters.
	MinDepth float32
	MaxDepth float32
	// Sentinel is the color for degenerate or out-of-range samples.
	Sentinel color.NRGBA
}

// DefaultVisualOptions matches the device overlay: 0.1–3.0 m ramp, pure red
// for invalid samples.
func DefaultVisualOptions() VisualOptions {
	return VisualOptions{
		MinDepth: 0.1,
		MaxDepth: 3.0,
		Sentinel: color.NRGBA{R: 255, A: 255},
	}
}

// VisualImage renders a raw NDC depth plane as a grayscale NRGBA image.
// Rows are flipped so row 0 is the top of the plane (readback buffers are
// bottom-up), and closer samples render brighter.
func VisualImage(values []float32, width, height int, near float32, opts VisualOptions) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	span := opts.MaxDepth - opts.MinDepth
	for y := 0; y < height; y++ {
		srcRow := (height - 1 - y) * width
		for x := 0; x < width; x++ {
			var c color.NRGBA
			i := srcRow + x
			if i >= len(values) {
				c = opts.Sentinel
			} else {
				lin := Decode(values[i], near)
				if math32.IsInf(lin, 0) || math32.IsNaN(lin) || lin < opts.MinDepth || lin > opts.MaxDepth {
					c = opts.Sentinel
				} else {
					v := uint8(255 * (1 - (lin-opts.MinDepth)/span))
					c = color.NRGBA{R: v, G: v, B: v, A: 255}
				}
			}
			di := img.PixOffset(x, y)
			img.Pix[di] = c.R
			img.Pix[di+1] = c.G
			img.Pix[di+2] = c.B
			img.Pix[di+3] = c.A
		}
	}
	return img
}

// WriteVisual encodes img losslessly to path, choosing the codec from the
// extension: .png, .webp or .tga.
func WriteVisual(path string, img *image.NRGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("depth: create %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	case ".webp":
		err = nativewebp.Encode(f, img, nil)
	case ".tga":
		err = tga.Encode(f, img)
	default:
		err = fmt.Errorf("unknown extension")
	}
	if err != nil {
		return fmt.Errorf("depth: encode %s: %w", path, err)
	}
	return nil
}
