package stack

import (
	"fmt"

	"go.uber.org/zap"
)

// StackFrame is one activation record of a captured call stack.
//
// A frame either wraps a live NativeFrame (see BuildStackFrame) or was
// recovered from a printed stack (see ParseToStackFrame). Scopes and the
// calling frame are derived lazily from the native handle and cached on the
// frame. A StackFrame is not safe for concurrent use.
type StackFrame struct {
	sourceFile SourceFile
	// set when the frame was created without a source file
	noSource bool
	href     string
	line     int
	fn       string
	args     []Arg
	pc       int

	native  NativeFrame
	script  Script
	context Context

	// newest frame of the chain this frame belongs to
	newest *StackFrame

	callingFrame *StackFrame
	frameIndex   int
	hasIndex     bool

	scopes []*Scope
}

// NewStackFrame creates a frame. A nil newest makes the frame the newest of
// its own chain.
func NewStackFrame(sourceFile SourceFile, line int, functionName string, args []Arg,
	native NativeFrame, pc int, context Context, newest *StackFrame) *StackFrame {
	noSource := sourceFile == nil
	if noSource {
		sourceFile = NewSourceFile("")
	}
	f := &StackFrame{
		sourceFile: sourceFile,
		noSource:   noSource,
		href:       sourceFile.Href(),
		line:       line,
		fn:         functionName,
		args:       args,
		pc:         pc,
		native:     native,
		context:    context,
		newest:     newest,
	}
	if f.newest == nil {
		f.newest = f
	}
	if native != nil {
		f.script = native.Script()
	}
	return f
}

// URL returns the href of the frame's source file
func (f *StackFrame) URL() string {
	return f.href
}

// SourceFile returns the frame's source file descriptor
func (f *StackFrame) SourceFile() SourceFile {
	return f.sourceFile
}

// CompilationUnit looks the frame's script up in its session. It returns
// whatever the session returns for an unknown href, nil after Destroy.
func (f *StackFrame) CompilationUnit() any {
	if f.context == nil {
		return nil
	}
	return f.context.CompilationUnit(f.href)
}

// NewestFrame returns the newest frame of the chain containing f
func (f *StackFrame) NewestFrame() *StackFrame {
	return f.newest
}

func (f *StackFrame) FunctionName() string {
	return f.fn
}

func (f *StackFrame) LineNumber() int {
	return f.line
}

func (f *StackFrame) Args() []Arg {
	return f.args
}

func (f *StackFrame) PC() int {
	return f.pc
}

// SourceLink returns a link to the frame's location
func (f *StackFrame) SourceLink() SourceLink {
	return SourceLink{URL: f.href, Line: f.line, Type: "js"}
}

func (f *StackFrame) String() string {
	href := f.href
	if f.noSource {
		href = "no source file"
	}
	return fmt.Sprintf("%s, %s@%d", f.fn, href, f.line)
}

// SetCallingFrame records the caller of f and f's position in the chain
func (f *StackFrame) SetCallingFrame(caller *StackFrame, frameIndex int) {
	f.callingFrame = caller
	f.frameIndex = frameIndex
	f.hasIndex = true
}

// CallingFrame returns the caller of f. When no caller is cached and the
// native frame is still valid, the caller is built from the native frame and
// cached. Otherwise the cached value is returned as-is, possibly nil.
func (f *StackFrame) CallingFrame() *StackFrame {
	logger().Debug("getCallingFrame", zap.Stringer("frame", f))

	if f.callingFrame == nil && f.native != nil && f.native.IsValid() {
		if nativeCaller := f.native.CallingFrame(); nativeCaller != nil {
			f.callingFrame = buildStackFrame(nativeCaller, f.context, f.newest)
			if f.callingFrame != nil && f.hasIndex {
				f.callingFrame.frameIndex = f.frameIndex + 1
				f.callingFrame.hasIndex = true
			}
		}
	}
	return f.callingFrame
}

// FrameIndex returns f's position in its chain, ok is false when unknown
func (f *StackFrame) FrameIndex() (index int, ok bool) {
	return f.frameIndex, f.hasIndex
}

// Destroy drops the references f holds to the native frame, its script and
// the session. The calling frame and cached scopes are left alone.
func (f *StackFrame) Destroy() {
	logger().Debug("StackFrame destroyed", zap.Stringer("frame", f))

	f.script = nil
	f.native = nil
	f.context = nil
}

// Actor returns the debugger actor id of the native frame
func (f *StackFrame) Actor() string {
	if f.native == nil {
		return ""
	}
	return f.native.Actor()
}

// Signature identifies the frame across pauses
func (f *StackFrame) Signature() string {
	return f.Actor()
}

// Scopes returns the frame's scope chain: the synthetic "this" scope followed
// by every environment from the innermost outwards. The list is built once.
// A destroyed frame returns whatever was cached before.
func (f *StackFrame) Scopes() []*Scope {
	if f.scopes != nil {
		return f.scopes
	}
	if f.native == nil || f.context == nil {
		return f.scopes
	}

	cache := f.context.GripCache()
	grip := func(value any) any {
		if cache == nil {
			return value
		}
		return cache.Object(value)
	}

	// 'this' is not a real scope, but useful when debugging
	scopes := []*Scope{{Name: "this", Object: grip(f.native.This())}}

	for env := f.native.Environment(); env != nil; env = env.Parent() {
		scopes = append(scopes, &Scope{Name: env.Type(), Object: grip(env)})
	}

	f.scopes = scopes
	return f.scopes
}

// TopScope returns the innermost real scope, skipping "this"
func (f *StackFrame) TopScope() *Scope {
	scopes := f.Scopes()
	if len(scopes) > 1 {
		return scopes[1]
	}
	return nil
}
