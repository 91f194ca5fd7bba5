package session

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yousuf/jsstack/internal/logs"
	"github.com/yousuf/jsstack/internal/stack"
)

// Context is one debugging session: the scripts it has seen, their
// compilation units and the grips materialized for its frames.
// It is shared by every frame of the session and is safe for concurrent use.
type Context struct {
	SessionID string

	mu           sync.RWMutex
	sourceFiles  map[string]*SourceFile
	units        map[string]*CompilationUnit
	gripCache    *GripCache
	lastAccessed time.Time
}

// CompilationUnit is a script the session compiled
type CompilationUnit struct {
	URL        string
	SourceFile *SourceFile
}

// NewContext creates a new session context
func NewContext(sessionID string, gripCache *GripCache) *Context {
	return &Context{
		SessionID:    sessionID,
		sourceFiles:  make(map[string]*SourceFile),
		units:        make(map[string]*CompilationUnit),
		gripCache:    gripCache,
		lastAccessed: time.Now(),
	}
}

// RegisterSource records the text of the script loaded from url, replacing
// any earlier registration
func (c *Context) RegisterSource(url, content string) *SourceFile {
	sf := NewSourceFile(url, content)

	c.mu.Lock()
	c.sourceFiles[url] = sf
	c.units[url] = &CompilationUnit{URL: url, SourceFile: sf}
	c.mu.Unlock()

	zap.L().Named(logs.Session).Debug("registered source",
		zap.String("session", c.SessionID), zap.String("url", url), zap.Int("bytes", len(content)))
	return sf
}

// SourceFile implements stack.Context
func (c *Context) SourceFile(url string) (stack.SourceFile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sf, ok := c.sourceFiles[url]
	if !ok {
		return nil, false
	}
	return sf, true
}

// CompilationUnit implements stack.Context. Unknown hrefs yield nil.
func (c *Context) CompilationUnit(href string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	unit, ok := c.units[href]
	if !ok {
		return nil
	}
	return unit
}

// SourceFiles returns the registered URLs in sorted order
func (c *Context) SourceFiles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	urls := make([]string, 0, len(c.sourceFiles))
	for url := range c.sourceFiles {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// GripCache implements stack.Context
func (c *Context) GripCache() stack.GripCache {
	if c.gripCache == nil {
		return nil
	}
	return c.gripCache
}

// UpdateLastAccessed marks the session as used now
func (c *Context) UpdateLastAccessed() {
	c.mu.Lock()
	c.lastAccessed = time.Now()
	c.mu.Unlock()
}

func (c *Context) LastAccessed() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastAccessed
}

// Close drops everything the session holds
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sourceFiles = make(map[string]*SourceFile)
	c.units = make(map[string]*CompilationUnit)
	if c.gripCache != nil {
		c.gripCache.Purge()
	}
	return nil
}
