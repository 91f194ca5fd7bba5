package stack

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func argNames(args []Arg) []string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Name
	}
	return names
}

func TestParseToStackFrame(t *testing.T) {
	tests := []struct {
		line     string
		name     string
		args     []string
		href     string
		lineNo   int
		noFrame  bool
		testName string
	}{
		{
			testName: "with arguments",
			line:     "foo(a,b)@http://x/y.js:42",
			name:     "foo",
			args:     []string{"a", "b"},
			href:     "http://x/y.js",
			lineNo:   42,
		},
		{
			testName: "without arguments",
			line:     "foo@http://x/y.js:42",
			name:     "foo",
			args:     []string{},
			href:     "http://x/y.js",
			lineNo:   42,
		},
		{
			testName: "empty argument list",
			line:     "foo()@http://x/y.js:3",
			name:     "foo",
			args:     []string{""},
			href:     "http://x/y.js",
			lineNo:   3,
		},
		{
			testName: "anonymous",
			line:     "@http://x/y.js:9",
			name:     "",
			args:     []string{},
			href:     "http://x/y.js",
			lineNo:   9,
		},
		{
			testName: "at sign inside arguments",
			line:     `send("a@b.c")@http://x/mail.js:5`,
			name:     "send",
			args:     []string{`"a@b.c"`},
			href:     "http://x/mail.js",
			lineNo:   5,
		},
		{
			testName: "missing line number",
			line:     "foo@http://x/y.js:",
			name:     "foo",
			args:     []string{},
			href:     "http://x/y.js",
			lineNo:   0,
		},
		{
			testName: "crlf line ending",
			line:     "foo@http://x/y.js:42\r",
			name:     "foo",
			args:     []string{},
			href:     "http://x/y.js",
			lineNo:   42,
		},
		{testName: "no location", line: "TypeError: x is undefined", noFrame: true},
		{testName: "empty", line: "", noFrame: true},
	}

	for _, test := range tests {
		t.Run(test.testName, func(t *testing.T) {
			frame := ParseToStackFrame(test.line, nil)
			if test.noFrame {
				assert.Nil(t, frame)
				return
			}
			require.NotNil(t, frame)
			assert.Equal(t, test.name, frame.FunctionName())
			assert.Equal(t, test.args, argNames(frame.Args()))
			assert.Equal(t, test.href, frame.URL())
			assert.Equal(t, test.lineNo, frame.LineNumber())
			assert.Equal(t, 0, frame.PC())
			assert.Equal(t, "", frame.Actor())
		})
	}
}

func TestParseToStackFrameTruncatesLongLines(t *testing.T) {
	line := strings.Repeat("(", 10000) + "minified@http://x/min.js:1"
	frame := ParseToStackFrame(line, nil)

	require.NotNil(t, frame)
	assert.Equal(t, "http://x/min.js", frame.URL())
	assert.Equal(t, 1, frame.LineNumber())
	assert.Len(t, frame.FunctionName(), maxStackLineLength-len("@http://x/min.js:1"))
}

func TestParseToStackFrameTruncatesOnRuneBoundary(t *testing.T) {
	line := strings.Repeat("é", 200) + "@http://x/y.js:1"
	frame := ParseToStackFrame(line, nil)

	require.NotNil(t, frame)
	assert.Equal(t, "http://x/y.js", frame.URL())
	assert.True(t, utf8.ValidString(frame.FunctionName()))
	assert.Equal(t, strings.Repeat("é", 119), frame.FunctionName())
}

func TestParseToStackFrameUsesRegisteredSource(t *testing.T) {
	ctx := newFakeContext()
	src := &linesSource{href: "http://x/y.js", lines: []string{"var a = 1;"}}
	ctx.sources["http://x/y.js"] = src

	frame := ParseToStackFrame("foo@http://x/y.js:1", ctx)
	require.NotNil(t, frame)
	assert.Same(t, src, frame.SourceFile())
	assert.Nil(t, frame.CompilationUnit())
}

func TestParseToStackTrace(t *testing.T) {
	stack := strings.Join([]string{
		"inner(x)@http://x/a.js:10",
		"this line is not a frame",
		"outer@http://x/b.js:20",
	}, "\n")

	trace := ParseToStackTrace(stack, nil)
	require.Equal(t, 2, trace.Len())
	assert.Equal(t, "inner", trace.Frames[0].FunctionName())
	assert.Equal(t, "outer", trace.Frames[1].FunctionName())
	assert.Equal(t, "inner, http://x/a.js@10\nouter, http://x/b.js@20", trace.String())
}

func TestParseToStackTraceEmpty(t *testing.T) {
	trace := ParseToStackTrace("", nil)
	require.NotNil(t, trace)
	assert.Equal(t, 0, trace.Len())
}
