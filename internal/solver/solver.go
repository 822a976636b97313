package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

// MinWordLength is the shortest word the solver will report.
const MinWordLength = 3

// offsets covers all 8 directions of a legal board step.
var offsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// WordSource supplies the normalized word list for a language.
type WordSource interface {
	Words(lang string) ([]string, error)
}

// Solver enumerates all dictionary words reachable on a grid. Tries and
// solved boards are cached; neither cache is authoritative, so a discarded
// entry only costs a rebuild.
type Solver struct {
	src      WordSource
	trieTTL  time.Duration
	solveTTL time.Duration
	solveMax int

	caches *cacheSet
	group  singleflight.Group
}

// Bands partitions solver output by difficulty (word length).
type Bands struct {
	Short  []string // <= 4 letters
	Medium []string // 5-6 letters
	Long   []string // >= 7 letters
}

func (b Bands) All() []string {
	out := make([]string, 0, len(b.Short)+len(b.Medium)+len(b.Long))
	out = append(out, b.Short...)
	out = append(out, b.Medium...)
	out = append(out, b.Long...)
	return out
}

func New(src WordSource, trieTTL, solveTTL time.Duration, solveMax int) *Solver {
	return &Solver{
		src:      src,
		trieTTL:  trieTTL,
		solveTTL: solveTTL,
		solveMax: solveMax,
		caches:   newCacheSet(),
	}
}

// Solve returns every reachable dictionary word on the grid, sorted. The grid
// must already be normalized for the language.
func (s *Solver) Solve(ctx context.Context, lang string, grid models.Grid) ([]string, error) {
	key := lang + ":" + grid.Flatten()
	if words, ok := s.caches.solvedWords(key, s.solveTTL); ok {
		return words, nil
	}

	trie, err := s.trie(ctx, lang)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	found := searchGrid(trie, grid)
	words := lo.Filter(lo.Keys(found), func(w string, _ int) bool {
		return isSolid(w)
	})
	sort.Strings(words)

	s.caches.storeSolved(key, words, s.solveMax)
	return words, nil
}

// Categorize splits words into difficulty bands for bot consumption.
func Categorize(words []string) Bands {
	var b Bands
	for _, w := range words {
		switch n := len([]rune(w)); {
		case n <= 4:
			b.Short = append(b.Short, w)
		case n <= 6:
			b.Medium = append(b.Medium, w)
		default:
			b.Long = append(b.Long, w)
		}
	}
	return b
}

// Sweep evicts expired cache entries. Run from a periodic cleanup ticker.
func (s *Solver) Sweep() {
	s.caches.sweep(s.trieTTL, s.solveTTL)
}

// CacheStats reports live cache entry counts for the stats surface.
func (s *Solver) CacheStats() (tries, solved int) {
	return s.caches.stats()
}

// trie returns the language trie, building it at most once concurrently.
func (s *Solver) trie(ctx context.Context, lang string) (*Trie, error) {
	if t, ok := s.caches.trie(lang, s.trieTTL); ok {
		return t, nil
	}

	v, err, _ := s.group.Do("trie:"+lang, func() (any, error) {
		if t, ok := s.caches.trie(lang, s.trieTTL); ok {
			return t, nil
		}
		words, err := s.src.Words(lang)
		if err != nil {
			return nil, fmt.Errorf("load words for %q: %w", lang, err)
		}
		t := BuildTrie(words)
		s.caches.storeTrie(lang, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Trie), nil
}

// searchGrid runs the pruned depth-first walk from every cell.
func searchGrid(t *Trie, g models.Grid) map[string]struct{} {
	found := make(map[string]struct{})
	visited := make([][]bool, g.Rows())
	for i := range visited {
		visited[i] = make([]bool, len(g[i]))
	}
	for r := range g {
		for c := range g[r] {
			walk(t.root, g, models.Cell{Row: r, Col: c}, visited, found)
		}
	}
	return found
}

func walk(n *trieNode, g models.Grid, cell models.Cell, visited [][]bool, found map[string]struct{}) {
	next := descend(n, g.At(cell))
	if next == nil {
		return // prefix pruning: no dictionary entry continues here
	}

	visited[cell.Row][cell.Col] = true
	if next.word != "" {
		found[next.word] = struct{}{}
	}
	for _, off := range offsets {
		nb := models.Cell{Row: cell.Row + off[0], Col: cell.Col + off[1]}
		if !g.InBounds(nb) || visited[nb.Row][nb.Col] {
			continue
		}
		walk(next, g, nb, visited, found)
	}
	visited[cell.Row][cell.Col] = false
}

// isSolid rejects words where any single letter repeats beyond a
// length-scaled threshold; such words read as obscure or unnatural.
func isSolid(word string) bool {
	runes := []rune(word)
	limit := len(runes)/3 + 1
	if limit < 2 {
		limit = 2
	}
	counts := make(map[rune]int, len(runes))
	for _, r := range runes {
		counts[r]++
		if counts[r] > limit {
			return false
		}
	}
	return true
}
