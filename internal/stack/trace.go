package stack

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// StackTrace is an ordered list of frames, innermost first
type StackTrace struct {
	Frames []*StackFrame
}

func NewStackTrace() *StackTrace {
	return &StackTrace{Frames: make([]*StackFrame, 0)}
}

// Push appends frame as the outermost frame of the trace
func (t *StackTrace) Push(frame *StackFrame) {
	t.Frames = append(t.Frames, frame)
}

func (t *StackTrace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Frames)
}

func (t *StackTrace) String() string {
	if t == nil {
		return ""
	}
	lines := make([]string, len(t.Frames))
	for i, frame := range t.Frames {
		lines[i] = frame.String()
	}
	return strings.Join(lines, "\n")
}

const (
	DefaultInternalFunctionPattern = `^_[fF]irebug`
	DefaultInternalSourcePattern   = `^\s*with\s*\(\s*_[fF]irebug`
)

// Cleaner strips debugger-internal frames from the outer end of a trace
type Cleaner struct {
	functionPatterns []*regexp.Regexp
	sourcePatterns   []*regexp.Regexp
}

var defaultCleaner = MustCleaner(
	[]string{DefaultInternalFunctionPattern},
	[]string{DefaultInternalSourcePattern},
)

// NewCleaner compiles the function-name and source-text patterns that mark
// a frame as internal
func NewCleaner(functionPatterns, sourcePatterns []string) (*Cleaner, error) {
	c := &Cleaner{}
	for _, p := range functionPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid internal function pattern %q", p)
		}
		c.functionPatterns = append(c.functionPatterns, re)
	}
	for _, p := range sourcePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid internal source pattern %q", p)
		}
		c.sourcePatterns = append(c.sourcePatterns, re)
	}
	return c, nil
}

// MustCleaner is like NewCleaner but panics on invalid patterns
func MustCleaner(functionPatterns, sourcePatterns []string) *Cleaner {
	c, err := NewCleaner(functionPatterns, sourcePatterns)
	if err != nil {
		panic(err)
	}
	return c
}

// Clean pops internal frames off the tail of trace. A trace left without
// frames is reported as nil, which callers must tell apart from an empty
// trace.
func (c *Cleaner) Clean(trace *StackTrace) *StackTrace {
	if trace == nil {
		return nil
	}

	for len(trace.Frames) > 0 && c.isInternal(trace.Frames[len(trace.Frames)-1]) {
		trace.Frames = trace.Frames[:len(trace.Frames)-1]
	}

	if len(trace.Frames) == 0 {
		return nil
	}
	return trace
}

func (c *Cleaner) isInternal(frame *StackFrame) bool {
	for _, re := range c.functionPatterns {
		if re.MatchString(frame.fn) {
			return true
		}
	}
	if frame.sourceFile == nil {
		return false
	}
	source := frame.sourceFile.Source()
	for _, re := range c.sourcePatterns {
		if re.MatchString(source) {
			return true
		}
	}
	return false
}

// CleanStackTraceOfFirebug strips frames of the debugger's own injected
// helpers using the default patterns
func CleanStackTraceOfFirebug(trace *StackTrace) *StackTrace {
	return defaultCleaner.Clean(trace)
}

// ChainDump lists the chain starting at newest, one "file (line)" per frame
func ChainDump(newest *StackFrame) string {
	var lines []string
	for frame := newest; frame != nil; frame = frame.CallingFrame() {
		name := frame.href
		if frame.script != nil {
			name = frame.script.FileName()
		}
		lines = append(lines, fmt.Sprintf("%s (%d)", name, frame.line))
	}
	return strings.Join(lines, "\n")
}

// FrameSourceLink links to a host stack location, nil for locations that
// cannot be shown
func FrameSourceLink(filename string, line int) *SourceLink {
	if filename == "" || strings.Contains(filename, "XPCSafeJSObjectWrapper") {
		return nil
	}
	return &SourceLink{URL: filename, Line: line, Type: "js"}
}
