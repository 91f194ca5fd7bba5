package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := RootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTextFormat(t *testing.T) {
	out, err := execute(t, "handler(e)@http://x/a.js:3\ngarbage\n@http://x/b.js:9\n", "--format", "text")
	require.NoError(t, err)
	assert.Equal(t, "handler, http://x/a.js@3\n, http://x/b.js@9\n", out)
}

func TestTableFormat(t *testing.T) {
	out, err := execute(t, "handler(e)@http://x/a.js:3")
	require.NoError(t, err)
	assert.Contains(t, out, "FUNCTION")
	assert.Contains(t, out, "http://x/a.js:3")
}

func TestReadsFileArgument(t *testing.T) {
	path := writeFile(t, "trace.txt", "main()@app.js:1\n")
	out, err := execute(t, "", "--format", "text", path)
	require.NoError(t, err)
	assert.Equal(t, "main, app.js@1\n", out)
}

func TestCleanAndGuess(t *testing.T) {
	src := writeFile(t, "a.js", "var onClick = function(event) {\n  boom();\n};")
	trace := "@http://x/a.js:2\n_firebugEval()@chrome://firebug/console.js:1\n"

	out, err := execute(t, trace, "--format", "text", "--clean", "--guess", "--source", "http://x/a.js="+src)
	require.NoError(t, err)
	assert.Equal(t, "onClick, http://x/a.js@2\n", out)

	out, err = execute(t, "_firebugEval()@x.js:1", "--format", "text", "--clean")
	require.NoError(t, err)
	assert.Equal(t, "(no frames)\n", out)
}

func TestSourceMap(t *testing.T) {
	mapPath := writeFile(t, "bundle.js.map", `{"version":3,"file":"bundle.js","sources":["src/app.js"],`+
		`"sourcesContent":["var handler = function() {\n  boom();\n};"],`+
		`"names":["handler"],"mappings":"AAAAA;AACA"}`)

	out, err := execute(t, "@bundle.js:2\nlost@bundle.js:7", "--format", "text", "--sourcemap", mapPath)
	require.NoError(t, err)
	assert.Equal(t, "handler@src/app.js:2 ✓ mapped\nlost@bundle.js:7 ✗ unmapped\n", out)
}

func TestV8Input(t *testing.T) {
	out, err := execute(t, "Error: boom\n    at load (http://x/a.js:4:2)\n", "--format", "text")
	require.NoError(t, err)
	assert.Equal(t, "load, http://x/a.js@4\n", out)
}

func TestInvalidFlags(t *testing.T) {
	_, err := execute(t, "", "--format", "xml")
	assert.Error(t, err)

	_, err = execute(t, "", "--source", "no-equals-sign")
	assert.Error(t, err)

	_, err = execute(t, "", "--log-level", "chatty")
	assert.Error(t, err)

	_, err = execute(t, "", "--sourcemap", filepath.Join(t.TempDir(), "missing.map"))
	assert.Error(t, err)
}
