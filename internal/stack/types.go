package stack

import (
	"go.uber.org/zap"

	"github.com/yousuf/jsstack/internal/logs"
)

// SourceFile describes a script known to the debugger session
type SourceFile interface {
	// Href is the URL the script was loaded from
	Href() string
	// Line returns the 1-based line n, false when n is out of range
	Line(n int) (string, bool)
	// Source returns the whole script text, empty when unknown
	Source() string
}

// Context is the debugger session a frame belongs to
type Context interface {
	CompilationUnit(href string) any
	SourceFile(url string) (SourceFile, bool)
	GripCache() GripCache
}

// GripCache materializes live debuggee values into grips
type GripCache interface {
	Object(value any) any
}

// Location is the position a live frame is stopped at
type Location struct {
	URL  string
	Line int
}

// NativeFrame is a live frame of the debuggee. It is owned by the debugger
// connection; a StackFrame only borrows it.
type NativeFrame interface {
	Where() Location
	// Arguments returns one name/value carrier per argument, each holding the
	// declared name as its single key
	Arguments() []map[string]any
	Callee() (name string, ok bool)
	This() any
	Environment() Environment
	CallingFrame() NativeFrame
	IsValid() bool
	Script() Script
	Actor() string
}

// Environment is one level of a live lexical environment chain
type Environment interface {
	Parent() Environment
	Type() string
}

// Script is the compiled script a live frame runs in
type Script interface {
	FileName() string
}

// Arg is a single frame argument
type Arg struct {
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
}

// Scope is one entry of a frame's scope chain
type Scope struct {
	Name   string
	Object any
}

// SourceLink points at a location in a source file
type SourceLink struct {
	URL  string `json:"url"`
	Line int    `json:"line"`
	Type string `json:"type"`
}

// degenerateSourceFile stands in for scripts the session has not registered
type degenerateSourceFile struct {
	href string
}

// NewSourceFile returns a SourceFile that only knows its URL
func NewSourceFile(href string) SourceFile {
	return degenerateSourceFile{href: href}
}

func (f degenerateSourceFile) Href() string { return f.href }

func (f degenerateSourceFile) Line(int) (string, bool) { return "", false }

func (f degenerateSourceFile) Source() string { return "" }

func logger() *zap.Logger {
	return zap.L().Named(logs.Stack)
}
