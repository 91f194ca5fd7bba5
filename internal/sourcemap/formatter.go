package sourcemap

import (
	"fmt"
	"strings"
)

// FormatFrame renders a frame as name@file:line, using the original
// position when the frame was mapped
func FormatFrame(frame MappedFrame) string {
	if !frame.Mapped {
		if frame.Generated == nil {
			return ""
		}
		return fmt.Sprintf("%s@%s:%d", frame.Generated.FunctionName(), frame.Generated.URL(), frame.Generated.LineNumber())
	}

	f := frame.Frame()
	return fmt.Sprintf("%s@%s:%d", f.FunctionName(), frame.OriginalURL, frame.OriginalLine)
}

// Format renders frames one per line
func Format(frames []MappedFrame) string {
	lines := make([]string, len(frames))
	for i, frame := range frames {
		lines[i] = FormatFrame(frame)
	}
	return strings.Join(lines, "\n")
}

// FormatWithMetadata is Format with a mapping marker after every frame
func FormatWithMetadata(frames []MappedFrame) string {
	lines := make([]string, len(frames))
	for i, frame := range frames {
		mappingStatus := "✗ unmapped"
		if frame.Mapped {
			mappingStatus = "✓ mapped"
		}
		lines[i] = fmt.Sprintf("%s %s", FormatFrame(frame), mappingStatus)
	}
	return strings.Join(lines, "\n")
}
