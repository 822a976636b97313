package solver

import (
	"math/rand"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

// letterBags holds per-language letter distributions for generated boards,
// weighted roughly by natural letter frequency.
var letterBags = map[string]string{
	"en": "EEEEEEEEEEAAAAAAAAIIIIIIIIOOOOOONNNNNNRRRRRRTTTTTTLLLLSSSSUUUUDDDDGGGBBCCMMPPFFHHVVWWYYKJXQZ",
}

// GenerateGrid builds a random size x size board for a language. The result
// is already normalized.
func GenerateGrid(lang string, size int, rng *rand.Rand) models.Grid {
	bag, ok := letterBags[lang]
	if !ok {
		bag = letterBags["en"]
	}
	letters := []rune(bag)

	g := make(models.Grid, size)
	for r := range g {
		g[r] = make([]string, size)
		for c := range g[r] {
			g[r][c] = string(letters[rng.Intn(len(letters))])
		}
	}
	return NormalizeGrid(lang, g)
}
