package sandbox

import (
	"context"
	"encoding/json"

	extism "github.com/extism/go-sdk"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/yousuf/jsstack/internal/logs"
	"github.com/yousuf/jsstack/internal/sourcemap"
	"github.com/yousuf/jsstack/internal/stack"
)

// Sandbox provides a WebAssembly execution environment for user code
type Sandbox struct {
	plugin *extism.Plugin
	ctx    context.Context
}

// Result is what the plugin reports for one execution
type Result struct {
	Error  string          `json:"error"`
	Stack  string          `json:"stack"`
	Result json.RawMessage `json:"result,omitempty"`

	// Trace is Stack parsed into frames, set only when Error is non-empty
	Trace *stack.StackTrace `json:"-"`
}

// Failed reports whether the code threw
func (r *Result) Failed() bool {
	return r.Error != ""
}

// NewSandbox creates a new sandbox instance
func NewSandbox(ctx context.Context, wasmPath string) (*Sandbox, error) {
	manifest := extism.Manifest{
		Wasm: []extism.Wasm{
			extism.WasmFile{
				Path: wasmPath,
			},
		},
	}

	config := extism.PluginConfig{
		EnableWasi: true,
	}

	plugin, err := extism.NewPlugin(ctx, manifest, config, []extism.HostFunction{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create plugin")
	}

	return &Sandbox{plugin: plugin, ctx: ctx}, nil
}

// ExecuteCode runs JavaScript code in the sandbox. A thrown error is not a
// Go error: it is reported in the Result with its stack parsed against
// context.
func (s *Sandbox) ExecuteCode(code string, context stack.Context) (*Result, error) {
	// Call the executeCode function exported by the JavaScript plugin
	exit, output, err := s.plugin.Call("executeCode", []byte(code))
	if err != nil {
		return nil, errors.Wrap(err, "plugin execution failed")
	}
	if exit != 0 {
		return nil, errors.Errorf("plugin exited with code %d", exit)
	}

	return decodeOutput(output, context)
}

// Close closes the sandbox and frees resources
func (s *Sandbox) Close() {
	if s.plugin != nil {
		s.plugin.Close(s.ctx)
	}
}

func decodeOutput(output []byte, context stack.Context) (*Result, error) {
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal output")
	}

	if !result.Failed() {
		return &result, nil
	}

	result.Trace = stack.ParseToStackTrace(sourcemap.NormalizeStack(result.Stack), context)
	zap.L().Named(logs.Sandbox).Debug("code threw",
		zap.String("error", result.Error), zap.Int("frames", result.Trace.Len()))
	return &result, nil
}
