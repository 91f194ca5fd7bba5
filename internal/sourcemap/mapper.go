package sourcemap

import (
	"encoding/json"
	"net/url"
	"path"
	"time"

	gosourcemap "github.com/go-sourcemap/sourcemap"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/yousuf/jsstack/internal/logs"
	"github.com/yousuf/jsstack/internal/session"
	"github.com/yousuf/jsstack/internal/stack"
)

// Mapper holds parsed source maps by id. Entries expire when unused for the
// configured expiration.
type Mapper struct {
	maps       *cache.Cache
	expiration time.Duration
}

type entry struct {
	consumer *gosourcemap.Consumer
	sources  []string
}

// NewMapper creates a mapper whose entries live for expiration and are
// swept every cleanupInterval
func NewMapper(expiration, cleanupInterval time.Duration) *Mapper {
	return &Mapper{
		maps:       cache.New(expiration, cleanupInterval),
		expiration: expiration,
	}
}

// Register parses raw and stores it under id, replacing any earlier map.
// The parsed map is returned so callers need not look it up again.
func (m *Mapper) Register(id string, raw []byte) (*gosourcemap.Consumer, error) {
	if id == "" {
		return nil, errors.New("source map id is required")
	}

	consumer, err := gosourcemap.Parse("", raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse source map %q", id)
	}

	sources, err := sourceNames(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sources of %q", id)
	}

	m.maps.Set(id, &entry{consumer: consumer, sources: sources}, m.expiration)
	logger().Debug("registered source map",
		zap.String("id", id), zap.String("file", consumer.File()), zap.Int("sources", len(sources)))
	return consumer, nil
}

// Remove forgets the map stored under id and reports whether one was held
func (m *Mapper) Remove(id string) bool {
	if _, ok := m.maps.Get(id); !ok {
		return false
	}
	m.maps.Delete(id)
	logger().Debug("removed source map", zap.String("id", id))
	return true
}

// Consumer returns the parsed map stored under id
func (m *Mapper) Consumer(id string) (*gosourcemap.Consumer, bool) {
	e, ok := m.entry(id)
	if !ok {
		return nil, false
	}
	return e.consumer, true
}

// Len returns the number of maps held
func (m *Mapper) Len() int {
	return m.maps.ItemCount()
}

// MapTrace resolves every frame of trace through the map stored under id.
// Frames carry no column, so each lookup uses column 0 of the frame's line.
func (m *Mapper) MapTrace(id string, trace *stack.StackTrace) ([]MappedFrame, error) {
	e, ok := m.entry(id)
	if !ok {
		return nil, errors.Errorf("source map %q not found", id)
	}

	mapped := make([]MappedFrame, 0, trace.Len())
	if trace == nil {
		return mapped, nil
	}
	for _, frame := range trace.Frames {
		mapped = append(mapped, e.mapFrame(frame))
	}
	return mapped, nil
}

// RegisterSources copies the original sources embedded in the map stored
// under id into the session, so names can be guessed against them. It
// returns how many sources were registered.
func (m *Mapper) RegisterSources(ctx *session.Context, id string) (int, error) {
	e, ok := m.entry(id)
	if !ok {
		return 0, errors.Errorf("source map %q not found", id)
	}

	count := 0
	for _, src := range e.sources {
		content := e.consumer.SourceContent(src)
		if content == "" {
			continue
		}
		ctx.RegisterSource(src, content)
		count++
	}
	return count, nil
}

func (m *Mapper) entry(id string) (*entry, bool) {
	v, ok := m.maps.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

func (e *entry) mapFrame(frame *stack.StackFrame) MappedFrame {
	if frame == nil || frame.LineNumber() <= 0 {
		return MappedFrame{Generated: frame}
	}

	file, name, line, col, ok := e.consumer.Source(frame.LineNumber(), 0)
	if !ok || file == "" || line <= 0 {
		logger().Debug("failed to map position",
			zap.String("url", frame.URL()), zap.Int("line", frame.LineNumber()))
		return MappedFrame{Generated: frame}
	}

	mf := MappedFrame{
		Generated:      frame,
		OriginalURL:    file,
		OriginalLine:   line,
		OriginalColumn: col,
		OriginalName:   name,
		Mapped:         true,
	}
	if content := e.consumer.SourceContent(file); content != "" {
		mf.source = session.NewSourceFile(file, content)
	}
	return mf
}

// sourceNames lists the map's sources the way the consumer resolves them
func sourceNames(raw []byte) ([]string, error) {
	var v3 struct {
		SourceRoot string   `json:"sourceRoot"`
		Sources    []string `json:"sources"`
		Sections   []struct {
			Map *struct {
				SourceRoot string   `json:"sourceRoot"`
				Sources    []string `json:"sources"`
			} `json:"map"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(raw, &v3); err != nil {
		return nil, err
	}

	var names []string
	for _, src := range v3.Sources {
		names = append(names, resolveSource(v3.SourceRoot, src))
	}
	for _, s := range v3.Sections {
		if s.Map == nil {
			continue
		}
		for _, src := range s.Map.Sources {
			names = append(names, resolveSource(s.Map.SourceRoot, src))
		}
	}
	return names, nil
}

func resolveSource(root, source string) string {
	if root == "" || path.IsAbs(source) {
		return source
	}
	if u, err := url.Parse(source); err == nil && u.IsAbs() {
		return source
	}
	return path.Join(root, source)
}

func logger() *zap.Logger {
	return zap.L().Named(logs.Sourcemap)
}
