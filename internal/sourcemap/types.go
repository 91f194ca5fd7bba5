package sourcemap

import "github.com/yousuf/jsstack/internal/stack"

// MappedFrame is a parsed frame together with the original position the
// source map resolves it to
type MappedFrame struct {
	// The frame as it appeared in the generated code
	Generated *stack.StackFrame
	// Original source file URL (from source map)
	OriginalURL string
	// Original line number (1-indexed)
	OriginalLine int
	// Original column number (0-indexed)
	OriginalColumn int
	// Original function/symbol name from source map
	OriginalName string
	// Whether mapping was successful
	Mapped bool

	// original source text when the map embeds it
	source stack.SourceFile
}

// Frame returns a frame positioned at the original source. Unmapped frames
// return Generated unchanged.
//
// The function name is the source map's name for the position, else one
// guessed from the embedded original source, else the generated name.
func (m MappedFrame) Frame() *stack.StackFrame {
	if !m.Mapped {
		return m.Generated
	}

	name := m.OriginalName
	if name == "" && m.source != nil {
		name = stack.GuessFunctionNameFromLines(m.OriginalURL, m.OriginalLine, m.source)
	}
	if name == "" && m.Generated != nil {
		name = m.Generated.FunctionName()
	}

	var args []stack.Arg
	if m.Generated != nil {
		args = m.Generated.Args()
	}

	source := m.source
	if source == nil {
		source = stack.NewSourceFile(m.OriginalURL)
	}
	return stack.NewStackFrame(source, m.OriginalLine, name, args, nil, 0, nil, nil)
}
