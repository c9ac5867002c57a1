// Package filehandler provides image-file classification, EXIF context
// extraction, and preview thumbnail generation for session files.
package filehandler

import (
	"path/filepath"
	"strings"
)

// SupportedImageExtensions maps analyzable image extensions to the MIME
// type declared on the vision call.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// IsAnalyzableImage reports whether the filename has a recognized image
// extension and is therefore eligible for description.
func IsAnalyzableImage(name string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// MIMEType returns the declared media type for an analyzable image, or
// "application/octet-stream" for anything else.
func MIMEType(name string) string {
	if mime, ok := SupportedImageExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return "application/octet-stream"
}
