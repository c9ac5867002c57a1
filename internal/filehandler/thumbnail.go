package filehandler

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// DefaultThumbnailMaxDimension is the maximum width or height of a
// preview thumbnail.
const DefaultThumbnailMaxDimension = 400

// Thumbnail downscales a JPEG or PNG image to fit within maxDimension
// and returns it encoded as JPEG. Images already small enough are
// re-encoded without resizing so the preview surface always serves one
// format.
func Thumbnail(name string, data []byte, maxDimension int) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var img image.Image
	var err error
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case ".png":
		img, err = png.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported format for thumbnail: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	bounds := img.Bounds()
	width, height := thumbnailDimensions(bounds.Dx(), bounds.Dy(), maxDimension)

	out := img
	if width != bounds.Dx() || height != bounds.Dy() {
		resized := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode thumbnail for %s: %w", name, err)
	}

	log.Debug().
		Str("name", name).
		Int("orig_width", bounds.Dx()).
		Int("orig_height", bounds.Dy()).
		Int("width", width).
		Int("height", height).
		Int("output_size", buf.Len()).
		Msg("Thumbnail generated")
	return buf.Bytes(), nil
}

// thumbnailDimensions scales (width, height) to fit maxDimension while
// preserving aspect ratio. Images already within bounds are unchanged.
func thumbnailDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}
	if width > height {
		return maxDimension, height * maxDimension / width
	}
	return width * maxDimension / height, maxDimension
}
