package stack

import (
	"sort"

	"go.uber.org/zap"
)

const argClassKey = "class"

// BuildStackFrame wraps a live debuggee frame. It logs and returns nil when
// there is no frame to build from.
func BuildStackFrame(native NativeFrame, context Context) *StackFrame {
	return buildStackFrame(native, context, nil)
}

func buildStackFrame(native NativeFrame, context Context, newest *StackFrame) *StackFrame {
	if native == nil {
		logger().Error("stackFrame.buildStackFrame; ERROR no frame!")
		return nil
	}

	where := native.Where()

	var sourceFile SourceFile
	if context != nil {
		if sf, ok := context.SourceFile(where.URL); ok && sf != nil {
			sourceFile = sf
		}
	}
	if sourceFile == nil {
		sourceFile = NewSourceFile(where.URL)
	}

	carriers := native.Arguments()
	args := make([]Arg, 0, len(carriers))
	for _, carrier := range carriers {
		args = append(args, Arg{
			Name:  argName(carrier),
			Value: argValue(carrier),
		})
	}

	funcName, _ := native.Callee()

	frame := NewStackFrame(sourceFile, where.Line, funcName, args, native, 0, context, newest)
	logger().Debug("built stack frame", zap.Stringer("frame", frame))
	return frame
}

// argName returns the declared name an argument carrier is keyed by. The
// "class" key is the value's type tag, never the name.
func argName(carrier map[string]any) string {
	names := make([]string, 0, len(carrier))
	for name := range carrier {
		if name == argClassKey {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}

// argValue prefers the type tag the protocol reports in place of a value
func argValue(carrier map[string]any) any {
	if class, ok := carrier[argClassKey]; ok && class != nil && class != "" {
		return class
	}
	return carrier
}
