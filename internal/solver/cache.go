package solver

import (
	"sort"
	"sync"
	"time"

	"github.com/ohadf2015/boggle-new-sub003/internal/util"
)

type trieEntry struct {
	trie    *Trie
	builtAt time.Time
}

type solvedEntry struct {
	words    []string
	solvedAt time.Time
}

// cacheSet guards both solver caches. Entries are time-boxed; the solved
// cache is additionally size-boxed with oldest-first eviction.
type cacheSet struct {
	mu     sync.RWMutex
	tries  map[string]*trieEntry
	solved map[string]*solvedEntry
}

func newCacheSet() *cacheSet {
	return &cacheSet{
		tries:  make(map[string]*trieEntry),
		solved: make(map[string]*solvedEntry),
	}
}

func (c *cacheSet) trie(lang string, ttl time.Duration) (*Trie, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tries[lang]
	if !ok || time.Since(e.builtAt) > ttl {
		return nil, false
	}
	return e.trie, true
}

func (c *cacheSet) storeTrie(lang string, t *Trie) {
	c.mu.Lock()
	c.tries[lang] = &trieEntry{trie: t, builtAt: time.Now()}
	c.mu.Unlock()
}

func (c *cacheSet) solvedWords(key string, ttl time.Duration) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.solved[key]
	if !ok || time.Since(e.solvedAt) > ttl {
		return nil, false
	}
	return e.words, true
}

func (c *cacheSet) storeSolved(key string, words []string, max int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.solved[key] = &solvedEntry{words: words, solvedAt: time.Now()}
	if max > 0 && len(c.solved) > max {
		c.evictOldestLocked(len(c.solved) - max)
	}
}

// evictOldestLocked drops the n least-recently-solved entries.
func (c *cacheSet) evictOldestLocked(n int) {
	type aged struct {
		key string
		at  time.Time
	}
	entries := make([]aged, 0, len(c.solved))
	for k, e := range c.solved {
		entries = append(entries, aged{key: k, at: e.solvedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].at.Before(entries[j].at)
	})
	for i := 0; i < n && i < len(entries); i++ {
		delete(c.solved, entries[i].key)
	}
}

func (c *cacheSet) sweep(trieTTL, solveTTL time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	trieCutoff := time.Now().Add(-trieTTL)
	for lang, e := range c.tries {
		if e.builtAt.Before(trieCutoff) {
			delete(c.tries, lang)
			removed++
		}
	}
	solveCutoff := time.Now().Add(-solveTTL)
	for key, e := range c.solved {
		if e.solvedAt.Before(solveCutoff) {
			delete(c.solved, key)
			removed++
		}
	}
	if removed > 0 {
		util.LogInfo("Swept %d expired solver cache entries", removed)
	}
}

func (c *cacheSet) stats() (tries, solved int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tries), len(c.solved)
}
