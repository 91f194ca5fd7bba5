package stack

import "strings"

type linesSource struct {
	href  string
	lines []string
}

func (s *linesSource) Href() string { return s.href }

func (s *linesSource) Line(n int) (string, bool) {
	if n < 1 || n > len(s.lines) {
		return "", false
	}
	return s.lines[n-1], true
}

func (s *linesSource) Source() string { return strings.Join(s.lines, "\n") }

type grip struct {
	value any
}

type countingCache struct {
	calls int
}

func (c *countingCache) Object(value any) any {
	c.calls++
	return &grip{value: value}
}

type fakeContext struct {
	sources map[string]SourceFile
	units   map[string]any
	cache   *countingCache
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		sources: map[string]SourceFile{},
		units:   map[string]any{},
		cache:   &countingCache{},
	}
}

func (c *fakeContext) CompilationUnit(href string) any {
	if u, ok := c.units[href]; ok {
		return u
	}
	return nil
}

func (c *fakeContext) SourceFile(url string) (SourceFile, bool) {
	sf, ok := c.sources[url]
	return sf, ok
}

func (c *fakeContext) GripCache() GripCache { return c.cache }

type fakeEnv struct {
	kind   string
	parent *fakeEnv
}

func (e *fakeEnv) Parent() Environment {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *fakeEnv) Type() string { return e.kind }

type fakeScript string

func (s fakeScript) FileName() string { return string(s) }

type fakeNative struct {
	where   Location
	args    []map[string]any
	callee  string
	this    any
	env     *fakeEnv
	caller  *fakeNative
	invalid bool
	script  fakeScript
	actor   string

	callingFrameCalls int
}

func (n *fakeNative) Where() Location             { return n.where }
func (n *fakeNative) Arguments() []map[string]any { return n.args }
func (n *fakeNative) This() any                   { return n.this }
func (n *fakeNative) IsValid() bool               { return !n.invalid }
func (n *fakeNative) Actor() string               { return n.actor }
func (n *fakeNative) Callee() (string, bool)      { return n.callee, n.callee != "" }

func (n *fakeNative) Script() Script {
	if n.script == "" {
		return nil
	}
	return n.script
}

func (n *fakeNative) Environment() Environment {
	if n.env == nil {
		return nil
	}
	return n.env
}

func (n *fakeNative) CallingFrame() NativeFrame {
	n.callingFrameCalls++
	if n.caller == nil {
		return nil
	}
	return n.caller
}
