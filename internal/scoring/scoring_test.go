package scoring_test

import (
	"strings"
	"testing"

	"github.com/ohadf2015/boggle-new-sub003/internal/scoring"
)

func TestSingleLetterScoresZero(t *testing.T) {
	for combo := 0; combo <= 12; combo++ {
		if total, bonus := scoring.Score("A", combo); total != 0 || bonus != 0 {
			t.Errorf("Score(A, %d) = (%d, %d), want (0, 0)", combo, total, bonus)
		}
	}
}

func TestBaseScoreWithoutCombo(t *testing.T) {
	cases := []struct {
		word string
		want int
	}{
		{"AT", 1},
		{"CAT", 2},
		{"TEAR", 3},
		{"CRATE", 4},
	}
	for _, c := range cases {
		if total, bonus := scoring.Score(c.word, 0); total != c.want || bonus != 0 {
			t.Errorf("Score(%q, 0) = (%d, %d), want (%d, 0)", c.word, total, bonus, c.want)
		}
	}
}

func TestScoreMonotonicInLength(t *testing.T) {
	for combo := 0; combo <= 12; combo++ {
		prev := -1
		for length := 2; length <= 10; length++ {
			word := strings.Repeat("AB", 5)[:length]
			total, _ := scoring.Score(word, combo)
			if total <= prev {
				t.Errorf("combo %d: score of length %d (%d) not greater than length %d (%d)",
					combo, length, total, length-1, prev)
			}
			prev = total
		}
	}
}

func TestScoreMonotonicInCombo(t *testing.T) {
	for _, word := range []string{"AT", "CAT", "TEAR", "CRATE", "STARED", "REACTED"} {
		prev := -1
		for combo := 0; combo <= 15; combo++ {
			total, _ := scoring.Score(word, combo)
			if total < prev {
				t.Errorf("%q: score dropped from %d to %d at combo %d", word, prev, total, combo)
			}
			prev = total
		}
	}
}

func TestComboBonusCapsAtTen(t *testing.T) {
	atTen := scoring.ComboBonus(10, 7)
	if scoring.ComboBonus(25, 7) != atTen {
		t.Error("combo contribution should cap at level 10")
	}
	if atTen != 20 {
		t.Errorf("ComboBonus(10, 7) = %d, want 20", atTen)
	}
}

func TestLongWordsEarnBiggerBonus(t *testing.T) {
	if scoring.ComboBonus(5, 3) >= scoring.ComboBonus(5, 7) {
		t.Error("long words should earn a larger per-level bonus than short ones")
	}
	if scoring.ComboBonus(5, 3) != 1 {
		t.Errorf("ComboBonus(5, 3) = %d, want 1", scoring.ComboBonus(5, 3))
	}
}

func TestLegacyMultiplierBands(t *testing.T) {
	if scoring.LegacyMultiplier(0) != 1.0 {
		t.Error("legacy multiplier starts at 1.0")
	}
	if scoring.LegacyMultiplier(100) != 2.25 {
		t.Error("legacy multiplier tops out at 2.25")
	}
	prev := 0.0
	for combo := 0; combo <= 12; combo++ {
		m := scoring.LegacyMultiplier(combo)
		if m < prev {
			t.Errorf("legacy multiplier decreased at combo %d", combo)
		}
		prev = m
	}
}
