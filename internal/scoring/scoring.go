package scoring

import "math"

// MaxComboContribution caps how much of the combo level feeds the bonus.
const MaxComboContribution = 10

// Score is the pure scoring function: base points plus the combo bonus.
// Single-letter words score zero regardless of combo.
func Score(word string, comboLevel int) (total, bonus int) {
	length := len([]rune(word))
	if length < 2 {
		return 0, 0
	}
	bonus = ComboBonus(comboLevel, length)
	return (length - 1) + bonus, bonus
}

// ComboBonus scales with both the combo level (capped) and word length, so
// sustained streaks of long words outpace short-word spam.
func ComboBonus(comboLevel, length int) int {
	if comboLevel <= 0 || length < 2 {
		return 0
	}
	level := comboLevel
	if level > MaxComboContribution {
		level = MaxComboContribution
	}
	return int(math.Round(float64(level) * lengthMultiplier(length)))
}

// lengthMultiplier is the per-combo-level weight of a word of this length.
func lengthMultiplier(length int) float64 {
	switch {
	case length <= 3:
		return 0.2
	case length == 4:
		return 0.5
	case length == 5:
		return 1.0
	case length == 6:
		return 1.5
	default:
		return 2.0
	}
}

// LegacyMultiplier is the banded display multiplier retained for older
// clients. It is presentation-only and never applied on top of ComboBonus.
func LegacyMultiplier(comboLevel int) float64 {
	switch {
	case comboLevel < 2:
		return 1.0
	case comboLevel < 4:
		return 1.25
	case comboLevel < 6:
		return 1.5
	case comboLevel < 8:
		return 1.75
	case comboLevel < 10:
		return 2.0
	default:
		return 2.25
	}
}
