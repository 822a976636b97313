package bot

import (
	"math/rand"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
	"github.com/ohadf2015/boggle-new-sub003/internal/solver"
	"github.com/ohadf2015/boggle-new-sub003/internal/util"
)

// State of the bot scheduler.
type State int

const (
	StateIdle State = iota
	StateActive
	StateBurst
	StatePause
	StateSteady
	StateStopped
)

// Difficulty tier of a simulated player.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

// Personality shapes a bot's word pool and timing.
type Personality struct {
	Difficulty      Difficulty
	DelayMin        time.Duration // base thinking window
	DelayMax        time.Duration
	BurstChance     float64 // odds of entering a rapid streak after a find
	PauseChance     float64 // odds of an extended thinking gap
	ComboFocus      float64 // 0..1, how much combo shrinks the delay
	MissChance      float64 // fraction of solvable words never found
	WrongWordChance float64 // odds a submission is a plausible non-word
}

// PersonalityFor returns the default tuning of a difficulty tier.
func PersonalityFor(d Difficulty) Personality {
	switch d {
	case Easy:
		return Personality{
			Difficulty: Easy, DelayMin: 6 * time.Second, DelayMax: 14 * time.Second,
			BurstChance: 0.05, PauseChance: 0.25, ComboFocus: 0.1,
			MissChance: 0.55, WrongWordChance: 0.12,
		}
	case Hard:
		return Personality{
			Difficulty: Hard, DelayMin: 2 * time.Second, DelayMax: 6 * time.Second,
			BurstChance: 0.25, PauseChance: 0.08, ComboFocus: 0.8,
			MissChance: 0.15, WrongWordChance: 0.03,
		}
	default:
		return Personality{
			Difficulty: Medium, DelayMin: 4 * time.Second, DelayMax: 9 * time.Second,
			BurstChance: 0.12, PauseChance: 0.15, ComboFocus: 0.4,
			MissChance: 0.35, WrongWordChance: 0.07,
		}
	}
}

// SubmitFunc feeds a bot submission into the same pipeline humans use.
type SubmitFunc func(username, word string)

// Bot is an ephemeral simulated player scoped to one room and one round.
// Every timer it schedules is tracked and cancelled on Stop, so a destroyed
// room leaves no orphaned callbacks behind.
type Bot struct {
	Username    string
	RoomCode    string
	personality Personality
	submit      SubmitFunc
	rng         *rand.Rand

	mu        sync.Mutex
	state     State
	queue     []string
	timers    map[*time.Timer]struct{}
	combo     int
	burstLeft int
}

func New(username, roomCode string, p Personality, submit SubmitFunc) *Bot {
	return &Bot{
		Username:    username,
		RoomCode:    roomCode,
		personality: p,
		submit:      submit,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		state:       StateIdle,
		timers:      make(map[*time.Timer]struct{}),
	}
}

// Start builds the round's submission queue from solver output and arms the
// scheduler. popularity, when present, biases the queue toward words real
// players tend to find.
func (b *Bot) Start(bands solver.Bands, grid models.Grid) {
	b.StartWithPopularity(bands, grid, nil)
}

func (b *Bot) StartWithPopularity(bands solver.Bands, grid models.Grid, popularity map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateStopped {
		return
	}

	b.queue = b.buildQueue(bands, grid, popularity)
	b.combo = 0
	b.state = StateActive
	b.scheduleLocked(b.nextDelayLocked())
	util.LogInfo("Bot %s armed in room %s with %d queued words", b.Username, b.RoomCode, len(b.queue))
}

// buildQueue biases the pool by difficulty, drops "missed" words, mixes in
// wrong words from random grid walks, and shuffles.
func (b *Bot) buildQueue(bands solver.Bands, grid models.Grid, popularity map[string]int) []string {
	var pool []string
	switch b.personality.Difficulty {
	case Easy:
		pool = append(pool, bands.Short...)
		pool = append(pool, pick(b.rng, bands.Medium, len(bands.Medium)/3)...)
	case Hard:
		pool = append(pool, bands.Long...)
		pool = append(pool, bands.Medium...)
		pool = append(pool, pick(b.rng, bands.Short, len(bands.Short)/2)...)
	default:
		pool = append(pool, bands.Short...)
		pool = append(pool, bands.Medium...)
		pool = append(pool, pick(b.rng, bands.Long, len(bands.Long)/3)...)
	}

	// Bots intentionally miss a share of the board.
	pool = lo.Filter(pool, func(_ string, _ int) bool {
		return b.rng.Float64() >= b.personality.MissChance
	})

	// A few plausible-looking non-words from random walks.
	wrong := 0
	for range pool {
		if b.rng.Float64() < b.personality.WrongWordChance {
			wrong++
		}
	}
	for i := 0; i < wrong; i++ {
		if w := randomWalkWord(grid, b.rng, 3+b.rng.Intn(4)); w != "" {
			pool = append(pool, w)
		}
	}

	pool = lo.Shuffle(pool)

	// Popular words drift forward: real players find them first.
	if len(popularity) > 0 {
		front := make([]string, 0, len(pool))
		back := make([]string, 0, len(pool))
		for _, w := range pool {
			if popularity[w] > 0 && b.rng.Float64() < 0.5 {
				front = append(front, w)
			} else {
				back = append(back, w)
			}
		}
		pool = append(front, back...)
	}
	return pool
}

// NoteCombo lets the owner report the bot's live combo level; combo-focused
// personalities speed up as it climbs.
func (b *Bot) NoteCombo(level int) {
	b.mu.Lock()
	b.combo = level
	b.mu.Unlock()
}

// State reports the scheduler state.
func (b *Bot) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// QueueLen reports the remaining queued words.
func (b *Bot) QueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// TimerCount reports live timer handles; it exists for leak tests.
func (b *Bot) TimerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.timers)
}

// Stop tears the bot down atomically: state flips to stopped and every
// outstanding timer is cancelled.
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateStopped
	for t := range b.timers {
		t.Stop()
	}
	b.timers = make(map[*time.Timer]struct{})
	b.queue = nil
}

func (b *Bot) scheduleLocked(delay time.Duration) {
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		b.fire(timer)
	})
	b.timers[timer] = struct{}{}
}

func (b *Bot) fire(self *time.Timer) {
	b.mu.Lock()
	delete(b.timers, self)
	if b.state == StateStopped || len(b.queue) == 0 {
		if b.state != StateStopped {
			b.state = StateIdle
		}
		b.mu.Unlock()
		return
	}

	word := b.queue[0]
	b.queue = b.queue[1:]
	username := b.Username
	submit := b.submit

	b.advanceLocked()
	if len(b.queue) > 0 {
		b.scheduleLocked(b.nextDelayLocked())
	} else {
		b.state = StateIdle
	}
	b.mu.Unlock()

	// Submission runs outside the lock: it re-enters the session pipeline.
	submit(username, word)
}

// advanceLocked rolls the next scheduler mode after a submission.
func (b *Bot) advanceLocked() {
	if b.burstLeft > 0 {
		b.burstLeft--
		if b.burstLeft == 0 {
			b.state = StateActive
		}
		return
	}
	roll := b.rng.Float64()
	switch {
	case roll < b.personality.BurstChance:
		b.state = StateBurst
		b.burstLeft = 2 + b.rng.Intn(3)
	case roll < b.personality.BurstChance+b.personality.PauseChance:
		b.state = StatePause
	default:
		b.state = StateSteady
	}
}

func (b *Bot) nextDelayLocked() time.Duration {
	p := b.personality
	base := p.DelayMin + time.Duration(b.rng.Int63n(int64(p.DelayMax-p.DelayMin)+1))

	switch b.state {
	case StateBurst:
		base = base / 6
		if base < 300*time.Millisecond {
			base = 300 * time.Millisecond
		}
	case StatePause:
		base = base * 3
	}

	// Combo momentum: delay shrinks as the streak builds.
	combo := b.combo
	if combo > 10 {
		combo = 10
	}
	shrink := 1 - p.ComboFocus*float64(combo)*0.05
	if shrink < 0.35 {
		shrink = 0.35
	}
	return time.Duration(float64(base) * shrink)
}

// pick takes up to n random elements from words.
func pick(rng *rand.Rand, words []string, n int) []string {
	if n <= 0 || len(words) == 0 {
		return nil
	}
	if n >= len(words) {
		return words
	}
	idx := rng.Perm(len(words))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, words[i])
	}
	return out
}

// randomWalkWord produces a plausible non-word by walking the grid, the same
// adjacency a real word would have.
func randomWalkWord(g models.Grid, rng *rand.Rand, length int) string {
	if g.Rows() == 0 || length <= 0 {
		return ""
	}
	cell := models.Cell{Row: rng.Intn(g.Rows()), Col: rng.Intn(g.Cols())}
	visited := map[models.Cell]struct{}{cell: {}}
	word := g.At(cell)

	for len([]rune(word)) < length {
		var options []models.Cell
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if dr == 0 && dc == 0 {
					continue
				}
				nb := models.Cell{Row: cell.Row + dr, Col: cell.Col + dc}
				if !g.InBounds(nb) {
					continue
				}
				if _, seen := visited[nb]; seen {
					continue
				}
				options = append(options, nb)
			}
		}
		if len(options) == 0 {
			break
		}
		cell = options[rng.Intn(len(options))]
		visited[cell] = struct{}{}
		word += g.At(cell)
	}
	return word
}
