package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ohadf2015/boggle-new-sub003/internal/achievements"
	"github.com/ohadf2015/boggle-new-sub003/internal/bot"
	"github.com/ohadf2015/boggle-new-sub003/internal/config"
	"github.com/ohadf2015/boggle-new-sub003/internal/dictionary"
	"github.com/ohadf2015/boggle-new-sub003/internal/models"
	"github.com/ohadf2015/boggle-new-sub003/internal/pathcheck"
	"github.com/ohadf2015/boggle-new-sub003/internal/scoring"
	"github.com/ohadf2015/boggle-new-sub003/internal/solver"
	"github.com/ohadf2015/boggle-new-sub003/internal/store"
	"github.com/ohadf2015/boggle-new-sub003/internal/util"
)

var (
	ErrRoomExists     = errors.New("room code already active")
	ErrRoomNotFound   = errors.New("room not found")
	ErrNameTaken      = errors.New("username already connected in room")
	ErrNotInRoom      = errors.New("user not present in room")
	ErrNotHost        = errors.New("only the host may do that")
	ErrRoundNotActive = errors.New("round not in progress")
	ErrRoundActive    = errors.New("round already in progress")
	ErrLateJoinClosed = errors.New("room does not allow joining mid-round")
	ErrEmptyWord      = errors.New("empty word")
	ErrNoPath         = errors.New("word does not trace a path on the board")
)

// Broadcaster is the transport seam the manager pushes outbound events
// through. The hub implements it; tests use a recording fake.
type Broadcaster interface {
	SendTo(connID string, ev models.Event)
	Send(connIDs []string, ev models.Event)
	Leaderboard(roomCode string, connIDs []string, ev models.Event)
	DropRoom(roomCode string)
}

// RoomOptions configures a new room.
type RoomOptions struct {
	Name          string
	Language      string
	TimerSeconds  int
	Ranked        bool
	AllowLateJoin bool
}

// JoinOptions carries the optional identity bits of a join.
type JoinOptions struct {
	Avatar string
	AuthID string
}

// Manager is the single source of truth for room and user state, and the
// only component allowed to mutate it.
type Manager struct {
	cfg    *config.Engine
	solver *solver.Solver
	exec   pathcheck.Executor
	dict   *dictionary.Service
	bcast  Broadcaster
	rec    store.Recorder

	mu    sync.RWMutex
	rooms map[string]*Room

	// Connection routing. These are the only structures shared across
	// rooms; entries are swapped atomically on join/leave.
	connRoom sync.Map // connID -> room code
	connUser sync.Map // connID -> username

	popMu      sync.Mutex
	popularity map[string]map[string]int // lang -> word -> human finds

	stop     chan struct{}
	stopOnce sync.Once
}

func NewManager(cfg *config.Engine, sv *solver.Solver, exec pathcheck.Executor, dict *dictionary.Service, bcast Broadcaster, rec store.Recorder) *Manager {
	return &Manager{
		cfg:        cfg,
		solver:     sv,
		exec:       exec,
		dict:       dict,
		bcast:      bcast,
		rec:        rec,
		rooms:      make(map[string]*Room),
		popularity: make(map[string]map[string]int),
		stop:       make(chan struct{}),
	}
}

func (m *Manager) room(code string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[code]
}

// RoomCount reports live rooms for the stats surface.
func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// CreateRoom registers a room in the waiting state and seats its host. An
// empty code gets a generated 6-digit one.
func (m *Manager) CreateRoom(code, hostUsername, hostConnID string, opts RoomOptions) (string, error) {
	if code == "" {
		code = m.generateCode()
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	timer := opts.TimerSeconds
	if timer <= 0 {
		timer = 180
	}

	now := time.Now()
	room := &Room{
		Code:          code,
		Name:          opts.Name,
		Language:      lang,
		HostUsername:  hostUsername,
		State:         models.GameStateWaiting,
		TimerSeconds:  timer,
		Ranked:        opts.Ranked,
		AllowLateJoin: opts.AllowLateJoin,
		CreatedAt:     now,
		LastActivity:  now,
		Users:         make(map[string]*User),
		bots:          make(map[string]*bot.Bot),
	}

	m.mu.Lock()
	if _, exists := m.rooms[code]; exists {
		m.mu.Unlock()
		return "", ErrRoomExists
	}
	m.rooms[code] = room
	m.mu.Unlock()

	host := newUser(hostUsername, hostConnID, false)
	host.IsHost = true
	room.mu.Lock()
	room.Users[hostUsername] = host
	room.mu.Unlock()

	m.connRoom.Store(hostConnID, code)
	m.connUser.Store(hostConnID, hostUsername)

	log.Info().Str("room", code).Str("host", hostUsername).Msg("room created")
	m.broadcastState(code)
	return code, nil
}

// Join seats a user. A collision with a disconnected username is a
// reconnection: the connection mapping is replaced, auth context merged, and
// the accumulated word history and score survive. A collision with a live
// username is rejected.
func (m *Manager) Join(code, username, connID string, opts JoinOptions) error {
	room := m.room(code)
	if room == nil {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	if existing := room.Users[username]; existing != nil {
		if existing.Connected {
			room.mu.Unlock()
			return ErrNameTaken
		}
		oldConn := existing.ConnID
		existing.ConnID = connID
		existing.Connected = true
		existing.Connection = models.ConnStable
		existing.Presence = models.PresenceActive
		now := time.Now()
		existing.LastActivityAt = now
		existing.LastHeartbeatAt = now
		if opts.AuthID != "" {
			existing.AuthID = opts.AuthID
		}
		if opts.Avatar != "" {
			existing.Avatar = opts.Avatar
		}
		if existing.graceTimer != nil {
			existing.graceTimer.Stop()
			existing.graceTimer = nil
		}
		room.LastActivity = now
		room.mu.Unlock()

		m.connRoom.Delete(oldConn)
		m.connUser.Delete(oldConn)
		m.connRoom.Store(connID, code)
		m.connUser.Store(connID, username)
		log.Info().Str("room", code).Str("user", username).Msg("user reconnected")
		m.broadcastState(code)
		return nil
	}

	if room.State != models.GameStateWaiting && room.State != models.GameStateFinished && !room.AllowLateJoin {
		room.mu.Unlock()
		return ErrLateJoinClosed
	}

	u := newUser(username, connID, false)
	u.Avatar = opts.Avatar
	u.AuthID = opts.AuthID
	room.Users[username] = u
	room.LastActivity = time.Now()
	room.mu.Unlock()

	m.connRoom.Store(connID, code)
	m.connUser.Store(connID, username)
	log.Info().Str("room", code).Str("user", username).Msg("user joined")
	m.broadcastState(code)
	return nil
}

// AddBot seats a simulated player. Bots share the human submission pipeline
// but never hold a connection and never earn achievements.
func (m *Manager) AddBot(code string, diff bot.Difficulty) (string, error) {
	room := m.room(code)
	if room == nil {
		return "", ErrRoomNotFound
	}

	room.mu.Lock()
	name := ""
	for i := 0; i < 50; i++ {
		candidate := botNames[mrand.Intn(len(botNames))]
		if _, taken := room.Users[candidate]; !taken {
			name = candidate
			break
		}
	}
	if name == "" {
		name = fmt.Sprintf("Bot-%d", len(room.Users)+1)
	}

	u := newUser(name, "", true)
	room.Users[name] = u
	b := bot.New(name, code, bot.PersonalityFor(diff), func(username, word string) {
		if _, err := m.SubmitWord(context.Background(), code, username, word); err != nil &&
			!errors.Is(err, ErrRoundNotActive) && !errors.Is(err, ErrNoPath) && !errors.Is(err, ErrNotInRoom) {
			util.LogWarn("Bot %s submission failed: %v", username, err)
		}
	})
	room.bots[name] = b
	room.mu.Unlock()

	log.Info().Str("room", code).Str("bot", name).Int("difficulty", int(diff)).Msg("bot added")
	m.broadcastState(code)
	return name, nil
}

var botNames = []string{
	"Lexi", "Wordsworth", "Scrabbles", "Vowelyn", "Gridlock", "Tilez",
	"Quill", "Syllabus", "Anagramma", "Glyph", "Morpheme", "Dicey",
}

// StartRound moves waiting -> in-progress. A nil grid gets a generated 4x4
// board. Per-player state resets for users currently present only.
func (m *Manager) StartRound(code, byUsername string, grid models.Grid, timerSeconds int) error {
	room := m.room(code)
	if room == nil {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	if byUsername != "" && byUsername != room.HostUsername {
		room.mu.Unlock()
		return ErrNotHost
	}
	if room.State == models.GameStateInProgress || room.State == models.GameStateValidating {
		room.mu.Unlock()
		return ErrRoundActive
	}

	if timerSeconds > 0 {
		room.TimerSeconds = timerSeconds
	}
	if grid == nil {
		rng := mrand.New(mrand.NewSource(time.Now().UnixNano()))
		grid = solver.GenerateGrid(room.Language, 4, rng)
	} else {
		grid = solver.NormalizeGrid(room.Language, grid)
	}

	now := time.Now()
	room.Grid = grid
	room.State = models.GameStateInProgress
	room.RoundStartedAt = now
	room.LastActivity = now
	room.pendingValidations = 0
	for _, u := range room.Users {
		u.resetForRound()
	}
	if room.roundTimer != nil {
		room.roundTimer.Stop()
	}
	room.roundTimer = time.AfterFunc(time.Duration(room.TimerSeconds)*time.Second, func() {
		m.EndRound(code)
	})

	bots := make([]*bot.Bot, 0, len(room.bots))
	for _, b := range room.bots {
		bots = append(bots, b)
	}
	lang := room.Language
	seconds := room.TimerSeconds
	room.mu.Unlock()

	log.Info().Str("room", code).Int("timer", seconds).Msg("round started")
	m.broadcastState(code)

	if len(bots) > 0 {
		go m.armBots(code, lang, grid, bots)
	}
	return nil
}

// armBots solves the board once and hands each bot its biased queue.
func (m *Manager) armBots(code, lang string, grid models.Grid, bots []*bot.Bot) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	words, err := m.solver.Solve(ctx, lang, grid)
	if err != nil {
		util.LogWarn("Board solve for room %s failed, bots stay idle: %v", code, err)
		return
	}

	// Re-validate: the round may already be over.
	room := m.room(code)
	if room == nil {
		return
	}
	room.mu.Lock()
	active := room.State == models.GameStateInProgress
	room.mu.Unlock()
	if !active {
		return
	}

	bands := solver.Categorize(words)
	pop := m.popularitySnapshot(lang)
	for _, b := range bots {
		b.StartWithPopularity(bands, grid, pop)
	}
}

// SubmitWord is the orchestration entry point: path check, dictionary
// verdict, scoring, combo, achievements, broadcasts. Room state is
// re-validated after every suspension point. A duplicate normalized word is
// a benign no-op returning (nil, nil).
func (m *Manager) SubmitWord(ctx context.Context, code, username, word string) (*models.WordRecord, error) {
	room := m.room(code)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	norm := solver.Normalize(room.Language, word)
	if norm == "" {
		return nil, ErrEmptyWord
	}

	room.mu.Lock()
	if room.State != models.GameStateInProgress {
		room.mu.Unlock()
		return nil, ErrRoundNotActive
	}
	u := room.Users[username]
	if u == nil {
		room.mu.Unlock()
		return nil, ErrNotInRoom
	}
	if _, dup := u.seen[norm]; dup {
		room.mu.Unlock()
		return nil, nil
	}
	grid := room.Grid
	room.mu.Unlock()

	// Suspension point: the worker round-trip.
	res, err := m.exec.Check(ctx, grid, norm)
	if err != nil {
		return nil, fmt.Errorf("path check: %w", err)
	}
	if !res.Found {
		return nil, ErrNoPath
	}

	localHit := m.dict.Contains(room.Language, norm)

	room.mu.Lock()
	// The await may have outlived the round or the player.
	if room.State != models.GameStateInProgress {
		room.mu.Unlock()
		return nil, ErrRoundNotActive
	}
	u = room.Users[username]
	if u == nil {
		room.mu.Unlock()
		return nil, ErrNotInRoom
	}
	if _, dup := u.seen[norm]; dup {
		room.mu.Unlock()
		return nil, nil
	}

	now := time.Now()
	level := u.ComboLevel
	total, bonus := scoring.Score(norm, level)
	rec := models.WordRecord{
		Word:           norm,
		Score:          total,
		ComboBonus:     bonus,
		ComboLevel:     level,
		Timestamp:      now,
		TimeSinceStart: now.Sub(room.RoundStartedAt),
		Validated:      models.ValidationPending,
		Path:           res.Path,
	}
	if localHit {
		rec.Validated = models.ValidationConfirmed
		rec.AutoValidated = true
	}

	u.Words = append(u.Words, rec)
	u.seen[norm] = len(u.Words) - 1
	u.Score += total
	u.ComboLevel++
	if u.ComboLevel > u.ComboPeak {
		u.ComboPeak = u.ComboLevel
	}
	u.LastActivityAt = now
	u.Presence = models.PresenceActive
	room.LastActivity = now
	m.armComboBreakLocked(room, u)

	if !localHit {
		room.pendingValidations++
		go m.resolveValidation(code, room.Language, username, norm)
	}
	if localHit && !u.IsBot {
		m.notePopularity(room.Language, norm)
	}

	var awards []achievements.Award
	if !u.IsBot {
		awards = m.safeEvaluateLive(u, room.TimerSeconds)
	}
	if b, ok := room.bots[username]; ok {
		b.NoteCombo(u.ComboLevel)
	}

	connID := u.ConnID
	isBot := u.IsBot
	connIDs := room.connIDsLocked()
	board := room.leaderboardLocked()
	legacy := scoring.LegacyMultiplier(u.ComboLevel)
	room.mu.Unlock()

	// Broadcasts run outside the lock.
	if !isBot && connID != "" {
		m.bcast.SendTo(connID, models.Event{
			Type: models.EventWordResult, Room: code, Username: username,
			Data: map[string]any{
				"word": rec.Word, "score": rec.Score, "comboBonus": rec.ComboBonus,
				"comboLevel": rec.ComboLevel, "validated": rec.Validated.String(),
				"path": rec.Path, "legacyMultiplier": legacy,
			},
		})
	}
	for _, a := range awards {
		m.bcast.Send(connIDs, models.Event{Type: models.EventAchievement, Room: code, Username: username, Data: a})
	}
	m.bcast.Leaderboard(code, connIDs, models.Event{Type: models.EventLeaderboard, Room: code, Data: board})

	return &rec, nil
}

// safeEvaluateLive runs the live rules inside a recover so a rule panic can
// never roll back the score update that preceded it.
func (m *Manager) safeEvaluateLive(u *User, roundSeconds int) (awards []achievements.Award) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Str("user", u.Username).Msg("live achievement evaluation panicked")
			awards = nil
		}
	}()
	return achievements.EvaluateLive(u.Awards, u.Words, achievements.Config{RoundSeconds: roundSeconds})
}

// armComboBreakLocked (re)starts the user's combo-break countdown; expiry
// resets the combo to zero.
func (m *Manager) armComboBreakLocked(room *Room, u *User) {
	if u.comboTimer != nil {
		u.comboTimer.Stop()
	}
	code := room.Code
	username := u.Username
	u.comboTimer = time.AfterFunc(m.cfg.ComboBreakAfter, func() {
		m.breakCombo(code, username)
	})
}

func (m *Manager) breakCombo(code, username string) {
	room := m.room(code)
	if room == nil {
		return
	}
	room.mu.Lock()
	u := room.Users[username]
	if u == nil || u.ComboLevel == 0 {
		room.mu.Unlock()
		return
	}
	u.ComboLevel = 0
	if b, ok := room.bots[username]; ok {
		b.NoteCombo(0)
	}
	room.mu.Unlock()
}

// resolveValidation consults the community/AI service off the event path and
// folds the verdict back in. Rounds never block on it.
func (m *Manager) resolveValidation(code, lang, username, word string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	verdict := m.dict.LookupWord(ctx, lang, word)

	room := m.room(code)
	if room == nil {
		return
	}

	room.mu.Lock()
	room.pendingValidations--
	finalize := room.State == models.GameStateValidating && room.pendingValidations <= 0

	var connIDs []string
	updated := false
	if u := room.Users[username]; u != nil {
		if idx, ok := u.seen[word]; ok && u.Words[idx].Validated == models.ValidationPending {
			if verdict.IsValid {
				u.Words[idx].Validated = models.ValidationConfirmed
				if !u.IsBot {
					m.notePopularity(lang, word)
				}
			} else {
				u.Words[idx].Validated = models.ValidationRejected
			}
			updated = true
			connIDs = room.connIDsLocked()
		}
	}
	room.mu.Unlock()

	if updated {
		m.bcast.Send(connIDs, models.Event{
			Type: models.EventWordResult, Room: code, Username: username,
			Data: map[string]any{
				"word": word, "validated": verdict.IsValid,
				"source": verdict.Source, "confidence": verdict.Confidence,
			},
		})
	}
	if finalize {
		m.finalizeRound(code)
	}
}

// EndRound moves in-progress -> validating, stops bots and combo clocks, and
// finalizes once pending validations resolve (with a bounded wait so a dead
// validation service cannot wedge the room).
func (m *Manager) EndRound(code string) {
	room := m.room(code)
	if room == nil {
		return
	}

	room.mu.Lock()
	if room.State != models.GameStateInProgress {
		room.mu.Unlock()
		return
	}
	room.State = models.GameStateValidating
	room.LastActivity = time.Now()
	if room.roundTimer != nil {
		room.roundTimer.Stop()
		room.roundTimer = nil
	}
	for _, b := range room.bots {
		b.Stop()
	}
	for _, u := range room.Users {
		if u.comboTimer != nil {
			u.comboTimer.Stop()
			u.comboTimer = nil
		}
	}
	pending := room.pendingValidations
	if pending > 0 {
		room.finalTimer = time.AfterFunc(10*time.Second, func() {
			m.finalizeRound(code)
		})
	}
	room.mu.Unlock()

	log.Info().Str("room", code).Int("pendingValidations", pending).Msg("round ended")
	m.broadcastState(code)

	if pending <= 0 {
		m.finalizeRound(code)
	}
}

// finalizeRound moves validating -> finished, runs the final achievement
// phase, broadcasts the summary, and hands results to the store.
func (m *Manager) finalizeRound(code string) {
	room := m.room(code)
	if room == nil {
		return
	}

	room.mu.Lock()
	if room.State != models.GameStateValidating {
		room.mu.Unlock()
		return
	}
	room.State = models.GameStateFinished
	if room.finalTimer != nil {
		room.finalTimer.Stop()
		room.finalTimer = nil
	}

	players := make([]achievements.PlayerRound, 0, len(room.Users))
	sets := make(map[string]*achievements.Set, len(room.Users))
	for _, u := range room.Users {
		players = append(players, achievements.PlayerRound{
			Username:  u.Username,
			IsBot:     u.IsBot,
			Score:     u.Score,
			Words:     u.Words,
			ComboPeak: u.ComboPeak,
		})
		sets[u.Username] = u.Awards
	}
	finalAwards := m.safeEvaluateFinal(players, sets, room.TimerSeconds)

	summary := room.summaryLocked(time.Now())
	connIDs := room.connIDsLocked()
	room.mu.Unlock()

	for username, list := range finalAwards {
		for _, a := range list {
			m.bcast.Send(connIDs, models.Event{Type: models.EventAchievement, Room: code, Username: username, Data: a})
		}
	}
	m.bcast.Send(connIDs, models.Event{Type: models.EventRoundEnd, Room: code, Data: summary})
	m.broadcastState(code)

	// Post-game bookkeeping must never touch gameplay: log and move on.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.rec.RecordRound(ctx, summary); err != nil {
			log.Warn().Err(err).Str("room", code).Msg("round result persistence failed")
		}
	}()
}

func (m *Manager) safeEvaluateFinal(players []achievements.PlayerRound, sets map[string]*achievements.Set, roundSeconds int) (out map[string][]achievements.Award) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Msg("final achievement evaluation panicked")
			out = nil
		}
	}()
	return achievements.EvaluateFinal(players, sets, achievements.Config{RoundSeconds: roundSeconds})
}

// Leave removes a user immediately (explicit departure, no grace).
func (m *Manager) Leave(code, username string) {
	m.removeUser(code, username, true)
}

// Disconnect marks the user's connection dead and arms the reconnection
// grace timer; the seat, score, and history survive until it fires.
func (m *Manager) Disconnect(connID string) {
	codeV, ok := m.connRoom.LoadAndDelete(connID)
	userV, ok2 := m.connUser.LoadAndDelete(connID)
	if !ok || !ok2 {
		return
	}
	code := codeV.(string)
	username := userV.(string)

	room := m.room(code)
	if room == nil {
		return
	}

	room.mu.Lock()
	u := room.Users[username]
	if u == nil || u.ConnID != connID {
		room.mu.Unlock()
		return
	}
	u.Connected = false
	u.Connection = models.ConnTimeout
	if u.graceTimer != nil {
		u.graceTimer.Stop()
	}
	u.graceTimer = time.AfterFunc(m.cfg.GracePeriod, func() {
		m.removeUser(code, username, false)
	})
	room.mu.Unlock()

	log.Info().Str("room", code).Str("user", username).Dur("grace", m.cfg.GracePeriod).Msg("user disconnected, grace period armed")
	m.broadcastState(code)
}

// removeUser drops a user from a room. When force is false the removal only
// proceeds if the user never reconnected.
func (m *Manager) removeUser(code, username string, force bool) {
	room := m.room(code)
	if room == nil {
		return
	}

	room.mu.Lock()
	u := room.Users[username]
	if u == nil || (!force && u.Connected) {
		room.mu.Unlock()
		return
	}
	u.cancelTimers()
	delete(room.Users, username)
	if b, ok := room.bots[username]; ok {
		b.Stop()
		delete(room.bots, username)
	}
	connID := u.ConnID

	// Host succession: first remaining human inherits the room.
	if u.IsHost {
		for _, cand := range room.Users {
			if !cand.IsBot {
				cand.IsHost = true
				room.HostUsername = cand.Username
				break
			}
		}
	}
	empty := room.humanCountLocked() == 0
	room.mu.Unlock()

	if connID != "" {
		m.connRoom.Delete(connID)
		m.connUser.Delete(connID)
	}
	log.Info().Str("room", code).Str("user", username).Msg("user removed")

	if empty {
		m.destroyRoom(code)
		return
	}
	m.broadcastState(code)
}

// destroyRoom deletes a room and cancels every timer it owns. After this
// returns no callback owned by the room may fire.
func (m *Manager) destroyRoom(code string) {
	m.mu.Lock()
	room := m.rooms[code]
	if room == nil {
		m.mu.Unlock()
		return
	}
	delete(m.rooms, code)
	m.mu.Unlock()

	room.mu.Lock()
	if room.destroyed {
		room.mu.Unlock()
		return
	}
	room.destroyed = true
	room.cancelTimersLocked()
	conns := make([]string, 0, len(room.Users))
	for _, u := range room.Users {
		if u.ConnID != "" {
			conns = append(conns, u.ConnID)
		}
	}
	room.mu.Unlock()

	for _, connID := range conns {
		m.connRoom.Delete(connID)
		m.connUser.Delete(connID)
	}
	m.bcast.DropRoom(code)
	log.Info().Str("room", code).Msg("room destroyed")
}

// broadcastState sends the authoritative room snapshot to every connected
// member.
func (m *Manager) broadcastState(code string) {
	room := m.room(code)
	if room == nil {
		return
	}
	room.mu.Lock()
	snap := room.snapshotLocked()
	connIDs := room.connIDsLocked()
	room.mu.Unlock()
	m.bcast.Send(connIDs, models.Event{Type: models.EventRoomState, Room: code, Data: snap})
}

func (m *Manager) notePopularity(lang, word string) {
	m.popMu.Lock()
	if m.popularity[lang] == nil {
		m.popularity[lang] = make(map[string]int)
	}
	m.popularity[lang][word]++
	m.popMu.Unlock()
}

func (m *Manager) popularitySnapshot(lang string) map[string]int {
	m.popMu.Lock()
	defer m.popMu.Unlock()
	src := m.popularity[lang]
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]int, len(src))
	for w, n := range src {
		out[w] = n
	}
	return out
}

// generateCode picks an unused 6-digit room code.
func (m *Manager) generateCode() string {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(900000))
		if err != nil {
			n = big.NewInt(time.Now().UnixNano() % 900000)
		}
		code := fmt.Sprintf("%06d", n.Int64()+100000)
		m.mu.RLock()
		_, taken := m.rooms[code]
		m.mu.RUnlock()
		if !taken {
			return code
		}
	}
}

// Shutdown stops the sweep tickers and tears down every room.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.RLock()
	codes := make([]string, 0, len(m.rooms))
	for code := range m.rooms {
		codes = append(codes, code)
	}
	m.mu.RUnlock()
	for _, code := range codes {
		m.destroyRoom(code)
	}
}
