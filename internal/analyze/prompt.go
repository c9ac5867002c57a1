package analyze

import (
	"strings"

	"github.com/fpang/stock-submit/internal/filehandler"
)

// baseTask is the fixed stock-photography description instruction. The
// provider is asked for the exact JSON keys the parser expects.
const baseTask = "Analyze this image for stock photography. " +
	"Return JSON with keys: Title, Description, Keywords (comma separated), " +
	"Category (choose from the standard Shutterstock categories)."

// BuildPrompt combines the fixed description task with the embedded
// camera metadata (when present) and the caller's context override.
// The override is worded to take precedence over visual inference so a
// photographer's knowledge of the subject wins over a wrong guess.
func BuildPrompt(override string, exif *filehandler.ExifContext) string {
	var sb strings.Builder
	sb.WriteString(baseTask)

	if exif != nil && !exif.Empty() {
		sb.WriteString("\n\n")
		sb.WriteString(exif.FormatPromptContext())
	}

	if override != "" {
		sb.WriteString("\n\nThe photographer supplied the following context about this image. ")
		sb.WriteString("Where it conflicts with what you can see, the supplied context takes precedence:\n")
		sb.WriteString(override)
	}

	return sb.String()
}
