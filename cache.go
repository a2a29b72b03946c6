package wf

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	go_cache_store "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Cache memoizes Compile's output, keyed by the structural hash (hash.go)
// of the op graph Compile was actually called with. WithCache attaches
// one to Compile; Compile runs uncached without one.
type Cache interface {
	Get(op Op) (Task, bool)
	Set(op Op, task Task)
}

// gocacheAdapter backs Cache with an in-process eko/gocache instance over
// patrickmn/go-cache — the teacher's declared-but-unused cache stack
// (go.mod lists all three modules with nothing in the teacher importing
// them). Task values are stored as the live Go value, not re-marshaled,
// since the go-cache store never leaves the process.
type gocacheAdapter struct {
	c *cache.Cache[Task]
}

// NewCache builds a Cache backed by an in-process go-cache store. A zero
// defaultExpiration means entries never expire on their own; a zero
// cleanupInterval disables the background sweep goroutine.
func NewCache(defaultExpiration, cleanupInterval time.Duration) Cache {
	if defaultExpiration <= 0 {
		defaultExpiration = gocache.NoExpiration
	}
	gc := gocache.New(defaultExpiration, cleanupInterval)
	return &gocacheAdapter{c: cache.New[Task](go_cache_store.NewGoCache(gc))}
}

func (a *gocacheAdapter) Get(op Op) (Task, bool) {
	v, err := a.c.Get(context.Background(), opCacheKey(op))
	if err != nil {
		var zero Task
		return zero, false
	}
	return v, true
}

func (a *gocacheAdapter) Set(op Op, task Task) {
	_ = a.c.Set(context.Background(), opCacheKey(op), task, store.WithExpiration(0))
}

// opCacheKey renders op's debug tree to bson.D and structurally hashes it
// (hash.go). Compile passes the op it was called with, before pruning and
// finalize, so two op graphs share a key when their debug trees render
// identically.
func opCacheKey(op Op) string {
	return strconv.FormatUint(structHash(debugNodeToBSON(op.Render())), 16)
}

// debugNodeToBSON renders a DebugNode (render.go) as bson.D so it can
// feed structHash; Details is sorted by key first since map iteration
// order isn't stable and the cache key must be.
func debugNodeToBSON(n *DebugNode) bson.D {
	keys := make([]string, 0, len(n.Details))
	for k := range n.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	details := make(bson.D, 0, len(keys))
	for _, k := range keys {
		details = append(details, bson.E{Key: k, Value: n.Details[k]})
	}
	children := make(bson.A, len(n.Children))
	for i, c := range n.Children {
		children[i] = debugNodeToBSON(c)
	}
	return bson.D{
		{Key: "type", Value: n.Type},
		{Key: "details", Value: details},
		{Key: "children", Value: children},
	}
}
