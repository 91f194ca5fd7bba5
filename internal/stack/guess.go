package stack

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	reGuessFunction    = regexp.MustCompile(`['"]?([$0-9A-Za-z_]+)['"]?\s*[:=]\s*(function|eval|new Function)`)
	reFunctionArgNames = regexp.MustCompile(`function ([^(]*)\(([^)]*)\)`)
)

// guessLookback is how many lines above the frame's line are searched
const guessLookback = 4

// GuessFunctionName infers a name for an anonymous function starting at
// lineNo. Without a source file it returns a "? in file@line" placeholder.
func GuessFunctionName(url string, lineNo int, sourceFile SourceFile) string {
	if sourceFile != nil {
		return GuessFunctionNameFromLines(url, lineNo, sourceFile)
	}
	return fmt.Sprintf("? in %s@%d", FileName(url), lineNo)
}

// GuessFunctionNameFromLines walks backwards from lineNo, growing the text
// one line at a time, until an assignment ("name = function") or a
// declaration ("function name(") is found. Both patterns are tried on every
// window, assignment first.
func GuessFunctionNameFromLines(url string, lineNo int, sourceFile SourceFile) string {
	text := ""
	for i := 0; i < guessLookback; i++ {
		line, ok := sourceFile.Line(lineNo - i)
		if !ok {
			continue
		}
		text = line + text

		if m := reGuessFunction.FindStringSubmatch(text); m != nil {
			return m[1]
		}
		logger().Debug("guessFunctionName re failed",
			zap.Int("lineNo", lineNo), zap.Int("i", i), zap.String("line", text))

		if m := reFunctionArgNames.FindStringSubmatch(text); m != nil && m[1] != "" {
			return m[1]
		}
	}

	return fmt.Sprintf("%s@%d", FileName(url), lineNo)
}

// GuessMissingNames gives every unnamed frame of trace a guessed name
func GuessMissingNames(trace *StackTrace) {
	if trace == nil {
		return
	}
	for _, frame := range trace.Frames {
		if frame.fn != "" {
			continue
		}
		var sourceFile SourceFile
		if frame.sourceFile != nil && frame.sourceFile.Source() != "" {
			sourceFile = frame.sourceFile
		}
		frame.fn = GuessFunctionName(frame.href, frame.line, sourceFile)
	}
}

// FileName returns the last path segment of url, without query or fragment
func FileName(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	url = strings.TrimRight(url, "/")
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
