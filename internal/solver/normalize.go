package solver

import (
	"strings"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

// foldTables collapses positional letterform variants to a canonical form,
// per language. Languages without variants fall through to plain upper-casing.
var foldTables = map[string]map[rune]rune{
	"he": {
		'ך': 'כ',
		'ם': 'מ',
		'ן': 'נ',
		'ף': 'פ',
		'ץ': 'צ',
	},
}

// Normalize upper-cases a word and folds letterform variants. It must be
// applied to every string before comparison: dictionary entries at load time,
// grid cells at indexing time, and submissions at intake.
func Normalize(lang, s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	table, ok := foldTables[lang]
	if !ok {
		return s
	}
	return strings.Map(func(r rune) rune {
		if folded, ok := table[r]; ok {
			return folded
		}
		return r
	}, s)
}

// NormalizeGrid returns a copy of the grid with every cell normalized.
func NormalizeGrid(lang string, g models.Grid) models.Grid {
	out := make(models.Grid, len(g))
	for i, row := range g {
		out[i] = make([]string, len(row))
		for j, letter := range row {
			out[i][j] = Normalize(lang, letter)
		}
	}
	return out
}
