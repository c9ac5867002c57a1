package filehandler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ExifContext is the subset of embedded camera metadata worth handing to
// the vision model: capture time and place help it pick season, location
// and lighting keywords it cannot always infer from pixels.
type ExifContext struct {
	Latitude  float64
	Longitude float64
	HasGPS    bool

	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string
}

// ExtractExifContext reads EXIF metadata from an image file.
// imagemeta reads only the metadata bytes, not the whole image, and
// handles JPEG, HEIC, and TIFF containers. A file without usable EXIF is
// not an error; the caller simply gets an empty context.
func ExtractExifContext(path string) (*ExifContext, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	exif, err := imagemeta.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode EXIF from %s: %w", path, err)
	}

	ctx := &ExifContext{}

	gps := exif.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		ctx.Latitude = gps.Latitude()
		ctx.Longitude = gps.Longitude()
		ctx.HasGPS = true
	}

	// DateTimeOriginal is preferred; fall back to create/modify times.
	switch {
	case !exif.DateTimeOriginal().IsZero():
		ctx.DateTaken = exif.DateTimeOriginal()
		ctx.HasDate = true
	case !exif.CreateDate().IsZero():
		ctx.DateTaken = exif.CreateDate()
		ctx.HasDate = true
	case !exif.ModifyDate().IsZero():
		ctx.DateTaken = exif.ModifyDate()
		ctx.HasDate = true
	}

	ctx.CameraMake = strings.TrimSpace(exif.Make)
	ctx.CameraModel = strings.TrimSpace(exif.Model)

	log.Debug().
		Str("path", path).
		Bool("has_gps", ctx.HasGPS).
		Bool("has_date", ctx.HasDate).
		Msg("EXIF context extracted")
	return ctx, nil
}

// Empty reports whether the context carries nothing useful for a prompt.
func (c *ExifContext) Empty() bool {
	return !c.HasGPS && !c.HasDate && c.CameraMake == "" && c.CameraModel == ""
}

// FormatPromptContext renders the context as a text block for inclusion
// in the description prompt.
func (c *ExifContext) FormatPromptContext() string {
	var sb strings.Builder

	sb.WriteString("Embedded camera metadata:\n")
	if c.HasDate {
		sb.WriteString(fmt.Sprintf("- Taken: %s\n", c.DateTaken.Format("Monday, January 2, 2006 3:04 PM")))
	}
	if c.HasGPS {
		sb.WriteString(fmt.Sprintf("- GPS: %.6f, %.6f\n", c.Latitude, c.Longitude))
	}
	if c.CameraMake != "" || c.CameraModel != "" {
		sb.WriteString(fmt.Sprintf("- Camera: %s %s\n", c.CameraMake, c.CameraModel))
	}
	return sb.String()
}
