package session

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// DefaultGripCacheSize is used when no size is configured
const DefaultGripCacheSize = 1024

// Grip is the session's handle on a live debuggee value
type Grip struct {
	Actor string
	Class string
	Value any
}

func (g *Grip) String() string {
	if g.Class != "" {
		return fmt.Sprintf("[%s %s]", g.Class, g.Actor)
	}
	return fmt.Sprintf("[%s]", g.Actor)
}

// GripCache hands out one Grip per debuggee actor, evicting the least
// recently used grips once full. Values without an actor are wrapped but
// never cached.
type GripCache struct {
	// mu makes the lookup and insert of Object one step
	mu    sync.Mutex
	cache *lru.Cache
}

func NewGripCache(size int) (*GripCache, error) {
	if size <= 0 {
		size = DefaultGripCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create grip cache")
	}
	return &GripCache{cache: cache}, nil
}

// Object implements stack.GripCache
func (c *GripCache) Object(value any) any {
	actor, ok := value.(interface{ Actor() string })
	if !ok || actor.Actor() == "" {
		return newGrip("", value)
	}

	id := actor.Actor()
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.cache.Get(id); ok {
		return cached
	}

	grip := newGrip(id, value)
	c.cache.Add(id, grip)
	return grip
}

func (c *GripCache) Len() int {
	return c.cache.Len()
}

func (c *GripCache) Purge() {
	c.cache.Purge()
}

func newGrip(actor string, value any) *Grip {
	grip := &Grip{Actor: actor, Value: value}
	if classed, ok := value.(interface{ Class() string }); ok {
		grip.Class = classed.Class()
	}
	return grip
}
