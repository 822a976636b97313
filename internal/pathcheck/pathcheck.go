package pathcheck

import (
	"strings"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

var offsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// FindPath reports whether word traces a legal 8-directional path on the
// grid, reusing no cell, and returns one such path when it exists. Both the
// grid and the word must already be normalized.
func FindPath(g models.Grid, word string) ([]models.Cell, bool) {
	if word == "" || g.Rows() == 0 {
		return nil, false
	}

	visited := make([][]bool, g.Rows())
	for i := range visited {
		visited[i] = make([]bool, len(g[i]))
	}

	for r := range g {
		for c := range g[r] {
			start := models.Cell{Row: r, Col: c}
			if path, ok := extend(g, word, start, visited, nil); ok {
				return path, true
			}
		}
	}
	return nil, false
}

// extend tries to consume the remaining word starting at cell. Visited cells
// are excluded within the current path only; other paths may revisit them.
func extend(g models.Grid, remaining string, cell models.Cell, visited [][]bool, path []models.Cell) ([]models.Cell, bool) {
	letter := g.At(cell)
	if !strings.HasPrefix(remaining, letter) {
		return nil, false
	}

	visited[cell.Row][cell.Col] = true
	path = append(path, cell)
	rest := remaining[len(letter):]

	if rest == "" {
		out := make([]models.Cell, len(path))
		copy(out, path)
		visited[cell.Row][cell.Col] = false
		return out, true
	}

	for _, off := range offsets {
		nb := models.Cell{Row: cell.Row + off[0], Col: cell.Col + off[1]}
		if !g.InBounds(nb) || visited[nb.Row][nb.Col] {
			continue
		}
		if out, ok := extend(g, rest, nb, visited, path); ok {
			visited[cell.Row][cell.Col] = false
			return out, true
		}
	}

	visited[cell.Row][cell.Col] = false
	return nil, false
}
