// Package metadata defines the per-file annotation record and embeds
// approved records into image files via exiftool.
package metadata

// Record is the four-field annotation attached to one session file.
// Records are value data: they reference files by name only and live for
// a single request/response cycle.
//
// A failed analysis is represented as a Record too — title "Error
// Processing", the diagnostic in Description, empty Keywords/Category —
// so callers always receive one entry per eligible file.
type Record struct {
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
	Category    string `json:"category"`
}

// FailureTitle marks a Record produced for a file whose analysis failed.
const FailureTitle = "Error Processing"

// Failure builds the sentinel record for a file that could not be analyzed.
func Failure(filename, diagnostic string) Record {
	return Record{
		Filename:    filename,
		Title:       FailureTitle,
		Description: diagnostic,
	}
}
