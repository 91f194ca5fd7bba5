// Package render prints stack frames for terminals.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pkg/errors"

	"github.com/yousuf/jsstack/internal/stack"
)

const anonymous = "<anonymous>"

// Table prints one row per frame, newest first
func Table(w io.Writer, frames []*stack.StackFrame) error {
	table := tablewriter.NewTable(w, tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
		Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
	})))
	table.Header([]string{"#", "FUNCTION", "LOCATION", "ARGS"})

	for i, frame := range frames {
		if frame == nil {
			continue
		}
		row := []string{
			strconv.Itoa(i),
			functionName(frame),
			Location(frame),
			argNames(frame.Args()),
		}
		if err := table.Append(row); err != nil {
			return errors.Wrapf(err, "failed to add frame %d", i)
		}
	}

	if err := table.Render(); err != nil {
		return errors.Wrap(err, "failed to render frames")
	}
	return nil
}

// Location formats the frame's position as url:line
func Location(frame *stack.StackFrame) string {
	return fmt.Sprintf("%s:%d", frame.URL(), frame.LineNumber())
}

func functionName(frame *stack.StackFrame) string {
	if frame.FunctionName() == "" {
		return anonymous
	}
	return frame.FunctionName()
}

func argNames(args []stack.Arg) string {
	names := make([]string, 0, len(args))
	for _, arg := range args {
		if arg.Name == "" {
			continue
		}
		names = append(names, arg.Name)
	}
	return strings.Join(names, ", ")
}
