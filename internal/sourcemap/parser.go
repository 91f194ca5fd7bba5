package sourcemap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// at functionName (file:line:column)
	reAtNamed = regexp.MustCompile(`^at\s+(.+?)\s+\((.+?):(\d+):(\d+)\)$`)
	// at file:line:column
	reAtAnonymous = regexp.MustCompile(`^at\s+(.+?):(\d+):(\d+)$`)
)

// v8Frame is one "at ..." line of a V8-style stack
type v8Frame struct {
	FunctionName string
	FileName     string
	LineNumber   int
	ColumnNumber int
}

// parseV8Line parses a single "at ..." line. Native frames and lines in
// any other format are rejected.
func parseV8Line(line string) (v8Frame, bool) {
	trimmedLine := strings.TrimSpace(line)

	if trimmedLine == "" || strings.Contains(trimmedLine, "(native)") {
		return v8Frame{}, false
	}

	if matches := reAtNamed.FindStringSubmatch(trimmedLine); matches != nil {
		lineNum, _ := strconv.Atoi(matches[3])
		colNum, _ := strconv.Atoi(matches[4])
		name := matches[1]
		if name == "<anonymous>" {
			name = ""
		}
		return v8Frame{FunctionName: name, FileName: matches[2], LineNumber: lineNum, ColumnNumber: colNum}, true
	}

	if matches := reAtAnonymous.FindStringSubmatch(trimmedLine); matches != nil {
		lineNum, _ := strconv.Atoi(matches[2])
		colNum, _ := strconv.Atoi(matches[3])
		return v8Frame{FileName: matches[1], LineNumber: lineNum, ColumnNumber: colNum}, true
	}

	return v8Frame{}, false
}

// NormalizeStack rewrites V8-style "at fn (file:line:col)" lines into the
// "fn@file:line" form understood by stack.ParseToStackTrace. Lines already in
// that form pass through; the "Error: message" header and native frames are
// dropped.
func NormalizeStack(trace string) string {
	lines := strings.Split(trace, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		if frame, ok := parseV8Line(line); ok {
			out = append(out, fmt.Sprintf("%s@%s:%d", frame.FunctionName, frame.FileName, frame.LineNumber))
			continue
		}
		trimmed := strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if strings.HasPrefix(trimmed, "at ") || !strings.Contains(trimmed, "@") {
			continue
		}
		out = append(out, trimmed)
	}

	return strings.Join(out, "\n")
}
