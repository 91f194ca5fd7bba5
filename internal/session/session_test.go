package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yousuf/jsstack/internal/config"
	"github.com/yousuf/jsstack/internal/stack"
)

type actorValue struct {
	actor string
	class string
}

func (v actorValue) Actor() string { return v.actor }
func (v actorValue) Class() string { return v.class }

func newTestContext(t *testing.T) *Context {
	grips, err := NewGripCache(4)
	require.NoError(t, err)
	return NewContext("s1", grips)
}

func TestSourceFileLines(t *testing.T) {
	sf := NewSourceFile("http://x/a.js", "one\r\ntwo\nthree")

	line, ok := sf.Line(2)
	assert.True(t, ok)
	assert.Equal(t, "two", line)

	_, ok = sf.Line(0)
	assert.False(t, ok)
	_, ok = sf.Line(4)
	assert.False(t, ok)

	assert.Equal(t, 3, sf.LineCount())
	assert.Equal(t, 0, NewSourceFile("empty.js", "").LineCount())
}

func TestContextRegistry(t *testing.T) {
	ctx := newTestContext(t)

	_, ok := ctx.SourceFile("http://x/a.js")
	assert.False(t, ok)
	assert.Nil(t, ctx.CompilationUnit("http://x/a.js"))

	registered := ctx.RegisterSource("http://x/a.js", "var a = function() {\n  b();\n};")
	ctx.RegisterSource("http://x/0.js", "")

	sf, ok := ctx.SourceFile("http://x/a.js")
	require.True(t, ok)
	assert.Same(t, registered, sf)

	unit, ok := ctx.CompilationUnit("http://x/a.js").(*CompilationUnit)
	require.True(t, ok)
	assert.Equal(t, "http://x/a.js", unit.URL)
	assert.Same(t, registered, unit.SourceFile)

	assert.Equal(t, []string{"http://x/0.js", "http://x/a.js"}, ctx.SourceFiles())

	require.NoError(t, ctx.Close())
	assert.Empty(t, ctx.SourceFiles())
}

func TestContextBacksStackFrames(t *testing.T) {
	ctx := newTestContext(t)
	ctx.RegisterSource("http://x/a.js", "var handler = function() {\n  boom();\n};")

	trace := stack.ParseToStackTrace("@http://x/a.js:2\nouter@http://x/b.js:9", ctx)
	require.Equal(t, 2, trace.Len())

	assert.NotNil(t, trace.Frames[0].CompilationUnit())
	assert.Nil(t, trace.Frames[1].CompilationUnit())

	stack.GuessMissingNames(trace)
	assert.Equal(t, "handler", trace.Frames[0].FunctionName())
}

func TestGripCache(t *testing.T) {
	cache, err := NewGripCache(2)
	require.NoError(t, err)

	a := cache.Object(actorValue{actor: "a", class: "Window"})
	assert.Same(t, a, cache.Object(actorValue{actor: "a", class: "Window"}))
	assert.Equal(t, "[Window a]", a.(*Grip).String())

	plain := cache.Object(42)
	assert.Equal(t, 42, plain.(*Grip).Value)
	assert.Equal(t, 1, cache.Len())

	cache.Object(actorValue{actor: "b"})
	cache.Object(actorValue{actor: "c"})
	assert.Equal(t, 2, cache.Len())
	assert.NotSame(t, a, cache.Object(actorValue{actor: "a", class: "Window"}))

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}

func TestGripCacheConcurrentObject(t *testing.T) {
	cache, err := NewGripCache(8)
	require.NoError(t, err)

	const workers = 32
	grips := make([]any, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			grips[i] = cache.Object(actorValue{actor: "shared", class: "Window"})
		}()
	}
	close(start)
	wg.Wait()

	for _, g := range grips[1:] {
		assert.Same(t, grips[0], g)
	}
	assert.Equal(t, 1, cache.Len())
}

func TestGripCacheDefaultSize(t *testing.T) {
	cache, err := NewGripCache(0)
	require.NoError(t, err)
	assert.NotNil(t, cache)
}

func TestManager(t *testing.T) {
	mgr := NewManager(config.Default())
	ctx := context.Background()

	s1, err := mgr.GetOrCreateSession(ctx, "one")
	require.NoError(t, err)
	again, err := mgr.GetOrCreateSession(ctx, "one")
	require.NoError(t, err)
	assert.Same(t, s1, again)
	assert.Same(t, s1, mgr.GetSession("one"))
	assert.Nil(t, mgr.GetSession("two"))

	require.NoError(t, mgr.DeleteSession("one"))
	assert.Error(t, mgr.DeleteSession("one"))

	_, err = mgr.GetOrCreateSession(ctx, "two")
	require.NoError(t, err)
	require.NoError(t, mgr.CloseAll())
	assert.Nil(t, mgr.GetSession("two"))
}

func TestManagerCancelledContext(t *testing.T) {
	mgr := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mgr.GetOrCreateSession(ctx, "late")
	assert.Error(t, err)
}

func TestManagerExpireIdle(t *testing.T) {
	mgr := NewManager(nil)
	s, err := mgr.GetOrCreateSession(context.Background(), "idle")
	require.NoError(t, err)

	assert.Equal(t, 0, mgr.ExpireIdle(time.Hour))
	assert.Equal(t, 0, mgr.ExpireIdle(0))

	s.mu.Lock()
	s.lastAccessed = time.Now().Add(-2 * time.Hour)
	s.mu.Unlock()

	assert.Equal(t, 1, mgr.ExpireIdle(time.Hour))
	assert.Nil(t, mgr.GetSession("idle"))
}
