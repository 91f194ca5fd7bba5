package session

import (
	"strings"
	"sync"
)

// SourceFile is the text of a script registered with a session
type SourceFile struct {
	href    string
	content string

	once  sync.Once
	lines []string
}

func NewSourceFile(href, content string) *SourceFile {
	return &SourceFile{href: href, content: content}
}

func (f *SourceFile) Href() string {
	return f.href
}

// Line returns the 1-based line n
func (f *SourceFile) Line(n int) (string, bool) {
	f.once.Do(func() {
		f.lines = strings.Split(strings.ReplaceAll(f.content, "\r\n", "\n"), "\n")
	})
	if n < 1 || n > len(f.lines) {
		return "", false
	}
	return f.lines[n-1], true
}

func (f *SourceFile) Source() string {
	return f.content
}

// LineCount returns the number of lines in the script
func (f *SourceFile) LineCount() int {
	if f.content == "" {
		return 0
	}
	f.Line(1)
	return len(f.lines)
}
