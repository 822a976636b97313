package achievements

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

// Rule names. Live and final phases use disjoint names; the final phase never
// recomputes a concept the live phase already granted.
const (
	RuleFirstFind    = "first_find"    // live: first word of 4+ letters
	RuleWordSmith    = "word_smith"    // live: a 6+ letter word
	RuleLexiconGiant = "lexicon_giant" // live: an 8+ letter word
	RuleRapidFire    = "rapid_fire"    // live: burst of submissions in a window
	RuleQuickChain   = "quick_chain"   // live: tight consecutive-word gaps
	RuleComboFive    = "combo_five"    // live: combo level milestone
	RuleComboTen     = "combo_ten"     // live: combo level milestone
	RuleSharpshooter = "sharpshooter"  // final: high validated accuracy
	RuleWordRange    = "word_range"    // final: length diversity
	RulePathfinder   = "pathfinder"    // final: words nobody else found
	RulePhotoFinish  = "photo_finish"  // final: narrow-margin win
)

var titles = map[string]string{
	RuleFirstFind:    "First Find",
	RuleWordSmith:    "Word Smith",
	RuleLexiconGiant: "Lexicon Giant",
	RuleRapidFire:    "Rapid Fire",
	RuleQuickChain:   "Quick Chain",
	RuleComboFive:    "Combo x5",
	RuleComboTen:     "Combo x10",
	RuleSharpshooter: "Sharpshooter",
	RuleWordRange:    "Word Range",
	RulePathfinder:   "Pathfinder",
	RulePhotoFinish:  "Photo Finish",
}

// Award is one unlocked achievement.
type Award struct {
	Rule      string    `json:"rule"`
	Title     string    `json:"title"`
	AwardedAt time.Time `json:"awardedAt"`
}

// Config scales difficulty thresholds with the configured round length. The
// baseline numbers are tuned for a 180-second round.
type Config struct {
	RoundSeconds int
}

const baselineRoundSeconds = 180

func (c Config) scale() float64 {
	if c.RoundSeconds <= 0 {
		return 1
	}
	return float64(c.RoundSeconds) / baselineRoundSeconds
}

func (c Config) scaledCount(baseline int) int {
	n := int(math.Ceil(float64(baseline) * c.scale()))
	if n < 1 {
		n = 1
	}
	return n
}

// Set tracks which rules a player has already been awarded this round, so
// every rule fires at most once per round per player.
type Set struct {
	mu      sync.Mutex
	awarded map[string]Award
}

func NewSet() *Set {
	return &Set{awarded: make(map[string]Award)}
}

func (s *Set) Has(rule string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.awarded[rule]
	return ok
}

// grant records the rule and returns the award; nil when already granted.
func (s *Set) grant(rule string, at time.Time) *Award {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.awarded[rule]; ok {
		return nil
	}
	a := Award{Rule: rule, Title: titles[rule], AwardedAt: at}
	s.awarded[rule] = a
	return &a
}

// All returns the awards granted so far, oldest first.
func (s *Set) All() []Award {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := lo.Values(s.awarded)
	sort.Slice(out, func(i, j int) bool { return out[i].AwardedAt.Before(out[j].AwardedAt) })
	return out
}

// PlayerRound is the read-only view of one player's round handed to the
// evaluator. Bots are excluded by callers before evaluation.
type PlayerRound struct {
	Username  string
	IsBot     bool
	Score     int
	Words     []models.WordRecord
	ComboPeak int
}

// EvaluateLive checks the timing-sensitive rules against a history that
// already includes the new record (its last element). Returns newly granted
// awards only.
func EvaluateLive(set *Set, history []models.WordRecord, cfg Config) []Award {
	if len(history) == 0 {
		return nil
	}
	rec := history[len(history)-1]
	length := len([]rune(rec.Word))
	now := rec.Timestamp
	var out []Award

	add := func(rule string) {
		if a := set.grant(rule, now); a != nil {
			out = append(out, *a)
		}
	}

	if length >= 4 {
		add(RuleFirstFind)
	}
	if length >= 6 {
		add(RuleWordSmith)
	}
	if length >= 8 {
		add(RuleLexiconGiant)
	}

	// Burst: enough submissions inside a 30s sliding window.
	needed := cfg.scaledCount(5)
	window := 30 * time.Second
	inWindow := lo.CountBy(history, func(r models.WordRecord) bool {
		return now.Sub(r.Timestamp) <= window
	})
	if inWindow >= needed {
		add(RuleRapidFire)
	}

	// Chain: three consecutive words each within 5s of the previous.
	if n := len(history); n >= 3 {
		a, b, c := history[n-3], history[n-2], history[n-1]
		if b.Timestamp.Sub(a.Timestamp) <= 5*time.Second && c.Timestamp.Sub(b.Timestamp) <= 5*time.Second {
			add(RuleQuickChain)
		}
	}

	if rec.ComboLevel+1 >= 5 {
		add(RuleComboFive)
	}
	if rec.ComboLevel+1 >= 10 {
		add(RuleComboTen)
	}

	return out
}

// EvaluateFinal runs once every pending validation has resolved (or been
// detached) at round end. It only inspects the fully-judged word set and
// cross-player comparisons; live awards in each player's set are preserved
// untouched and never re-derived here.
func EvaluateFinal(players []PlayerRound, sets map[string]*Set, cfg Config) map[string][]Award {
	out := make(map[string][]Award)
	now := time.Now()

	humans := lo.Filter(players, func(p PlayerRound, _ int) bool { return !p.IsBot })

	// Words found by more than one player (all players count as competition).
	seenBy := make(map[string]int)
	for _, p := range players {
		for _, w := range p.Words {
			if w.Validated == models.ValidationConfirmed {
				seenBy[w.Word]++
			}
		}
	}

	winner, margin := winnerAndMargin(players)

	for _, p := range humans {
		set := sets[p.Username]
		if set == nil {
			continue
		}
		add := func(rule string) {
			if a := set.grant(rule, now); a != nil {
				out[p.Username] = append(out[p.Username], *a)
			}
		}

		confirmed := 0
		rejected := 0
		lengths := make(map[int]struct{})
		unique := 0
		for _, w := range p.Words {
			switch w.Validated {
			case models.ValidationConfirmed:
				confirmed++
				lengths[len([]rune(w.Word))] = struct{}{}
				if seenBy[w.Word] == 1 {
					unique++
				}
			case models.ValidationRejected:
				rejected++
			}
		}

		judged := confirmed + rejected
		if judged >= cfg.scaledCount(8) && float64(confirmed)/float64(judged) >= 0.9 {
			add(RuleSharpshooter)
		}
		if len(lengths) >= 4 {
			add(RuleWordRange)
		}
		if unique >= cfg.scaledCount(3) {
			add(RulePathfinder)
		}
		if p.Username == winner && margin > 0 && margin <= 5 && len(players) > 1 {
			add(RulePhotoFinish)
		}
	}

	return out
}

// winnerAndMargin returns the top scorer and the gap to the runner-up.
func winnerAndMargin(players []PlayerRound) (string, int) {
	if len(players) == 0 {
		return "", 0
	}
	sorted := make([]PlayerRound, len(players))
	copy(sorted, players)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if len(sorted) == 1 {
		return sorted[0].Username, 0
	}
	return sorted[0].Username, sorted[0].Score - sorted[1].Score
}
