package stack

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

var (
	// name(args)@file:lineNo
	reErrorStackLine = regexp.MustCompile(`^(.*)@(.*):(\d*)$`)
	// name(args), absent on runtimes that print bare names
	reErrorStackLine2 = regexp.MustCompile(`^([^\(]*)\((.*)\)$`)
)

// maxStackLineLength bounds the text a stack line regexp runs over; minified
// single-line sources can produce enormous lines
const maxStackLineLength = 255

// ParseToStackFrame parses one line of a printed stack of the form
// "name(arg, arg)@file:lineNo". It returns nil when the line has no
// "@file:lineNo" suffix. Only argument names are recovered.
func ParseToStackFrame(line string, context Context) *StackFrame {
	line = strings.TrimSuffix(line, "\r")
	if extra := len(line) - maxStackLineLength; extra > 0 {
		// keep whole runes
		for extra < len(line) && !utf8.RuneStart(line[extra]) {
			extra++
		}
		line = line[extra:]
	}

	m := reErrorStackLine.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	head, file := m[1], m[2]
	lineNo, _ := strconv.Atoi(m[3])

	sourceFile := lookupSourceFile(context, file)

	if m2 := reErrorStackLine2.FindStringSubmatch(head); m2 != nil {
		params := strings.Split(m2[2], ",")
		args := make([]Arg, len(params))
		for i, p := range params {
			args[i] = Arg{Name: p}
		}
		return NewStackFrame(sourceFile, lineNo, m2[1], args, nil, 0, context, nil)
	}

	// no parenthesized argument list, the whole head is the name
	return NewStackFrame(sourceFile, lineNo, head, []Arg{}, nil, 0, context, nil)
}

// ParseToStackTrace parses every line of stack, skipping lines that are not
// stack frames
func ParseToStackTrace(stack string, context Context) *StackTrace {
	lines := strings.Split(stack, "\n")
	trace := NewStackTrace()
	for i, line := range lines {
		frame := ParseToStackFrame(line, context)
		if frame == nil {
			logger().Debug("parseToStackTrace skipped line", zap.Int("i", i), zap.String("line", line))
			continue
		}
		logger().Debug("parseToStackTrace", zap.Int("i", i), zap.Stringer("frame", frame))
		trace.Push(frame)
	}
	return trace
}

func lookupSourceFile(context Context, url string) SourceFile {
	if context != nil {
		if sf, ok := context.SourceFile(url); ok && sf != nil {
			return sf
		}
	}
	return NewSourceFile(url)
}
