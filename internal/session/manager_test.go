package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ohadf2015/boggle-new-sub003/internal/config"
	"github.com/ohadf2015/boggle-new-sub003/internal/dictionary"
	"github.com/ohadf2015/boggle-new-sub003/internal/models"
	"github.com/ohadf2015/boggle-new-sub003/internal/pathcheck"
	"github.com/ohadf2015/boggle-new-sub003/internal/solver"
	"github.com/ohadf2015/boggle-new-sub003/internal/store"
)

// fakeBroadcaster records outbound events so tests can assert on what the
// manager pushed without a websocket in the loop.
type fakeBroadcaster struct {
	mu      sync.Mutex
	events  []models.Event
	dropped []string
}

func (f *fakeBroadcaster) SendTo(connID string, ev models.Event) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *fakeBroadcaster) Send(connIDs []string, ev models.Event) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *fakeBroadcaster) Leaderboard(roomCode string, connIDs []string, ev models.Event) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

func (f *fakeBroadcaster) DropRoom(roomCode string) {
	f.mu.Lock()
	f.dropped = append(f.dropped, roomCode)
	f.mu.Unlock()
}

func (f *fakeBroadcaster) countByType(t string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (f *fakeBroadcaster) droppedRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.dropped))
	copy(out, f.dropped)
	return out
}

func testConfig() *config.Engine {
	return &config.Engine{
		IdleAfter:           30 * time.Second,
		AFKAfter:            45 * time.Second,
		HeartbeatEvery:      10 * time.Second,
		WeakAfter:           15 * time.Second,
		TimeoutAfter:        30 * time.Second,
		GracePeriod:         time.Hour, // tests trigger expiry explicitly
		ComboBreakAfter:     time.Hour,
		RoomStaleAfter:      30 * time.Minute,
		CleanupEvery:        time.Minute,
		TrieTTL:             time.Minute,
		SolveTTL:            time.Minute,
		SolveCacheMax:       10,
		LeaderboardThrottle: time.Millisecond,
	}
}

func newTestManager(t *testing.T) (*Manager, *fakeBroadcaster) {
	t.Helper()
	dict := dictionary.NewService("", "")
	dict.LoadWords("en", []string{
		"CAT", "ARE", "TEA", "ATE", "EAR", "TEAR", "RATE", "CRATE", "CARE",
	})
	sv := solver.New(dict, time.Minute, time.Minute, 10)
	bcast := &fakeBroadcaster{}
	m := NewManager(testConfig(), sv, pathcheck.InlineExecutor{}, dict, bcast, store.Noop{})
	t.Cleanup(m.Shutdown)
	return m, bcast
}

func testBoard() models.Grid {
	return models.Grid{
		{"C", "A", "T"},
		{"A", "R", "E"},
		{"T", "E", "A"},
	}
}

func mustCreateInProgress(t *testing.T, m *Manager) string {
	t.Helper()
	code, err := m.CreateRoom("", "ada", "conn-ada", RoomOptions{Name: "test"})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := m.StartRound(code, "ada", testBoard(), 180); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	return code
}

func TestCreateRoomSeatsHost(t *testing.T) {
	m, _ := newTestManager(t)
	code, err := m.CreateRoom("", "ada", "conn-ada", RoomOptions{})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("generated code %q is not six digits", code)
	}

	room := m.room(code)
	room.mu.Lock()
	defer room.mu.Unlock()
	u := room.Users["ada"]
	if u == nil || !u.IsHost || !u.Connected {
		t.Fatal("host must be seated, connected, and flagged as host")
	}
	if room.State != models.GameStateWaiting {
		t.Errorf("new room state = %v, want waiting", room.State)
	}
}

func TestJoinRejectsLiveNameCollision(t *testing.T) {
	m, _ := newTestManager(t)
	code, _ := m.CreateRoom("", "ada", "conn-ada", RoomOptions{})
	if err := m.Join(code, "ada", "conn-other", JoinOptions{}); !errors.Is(err, ErrNameTaken) {
		t.Errorf("joining with a connected username: err = %v, want ErrNameTaken", err)
	}
}

func TestSubmitWordScoresAndConfirms(t *testing.T) {
	m, _ := newTestManager(t)
	code := mustCreateInProgress(t, m)

	rec, err := m.SubmitWord(context.Background(), code, "ada", "CAT")
	if err != nil {
		t.Fatalf("SubmitWord: %v", err)
	}
	if rec.Score != 2 || rec.ComboBonus != 0 || rec.ComboLevel != 0 {
		t.Errorf("first word = score %d bonus %d level %d, want 2/0/0", rec.Score, rec.ComboBonus, rec.ComboLevel)
	}
	if rec.Validated != models.ValidationConfirmed || !rec.AutoValidated {
		t.Error("a local dictionary hit should confirm immediately")
	}
	if len(rec.Path) != 3 {
		t.Errorf("path has %d cells, want 3", len(rec.Path))
	}

	// The second word is scored at the raised combo level.
	rec2, err := m.SubmitWord(context.Background(), code, "ada", "RATE")
	if err != nil {
		t.Fatalf("SubmitWord: %v", err)
	}
	if rec2.ComboLevel != 1 {
		t.Errorf("second word combo level = %d, want 1", rec2.ComboLevel)
	}
	if rec2.Score <= 3 {
		t.Errorf("second word score %d should exceed the base thanks to the combo bonus", rec2.Score)
	}

	room := m.room(code)
	room.mu.Lock()
	defer room.mu.Unlock()
	u := room.Users["ada"]
	if u.Score != rec.Score+rec2.Score {
		t.Errorf("player score %d, want %d", u.Score, rec.Score+rec2.Score)
	}
	if u.ComboLevel != 2 {
		t.Errorf("combo level %d after two finds, want 2", u.ComboLevel)
	}
}

func TestSubmitWordDuplicateIsNoOp(t *testing.T) {
	m, _ := newTestManager(t)
	code := mustCreateInProgress(t, m)

	if _, err := m.SubmitWord(context.Background(), code, "ada", "CAT"); err != nil {
		t.Fatalf("SubmitWord: %v", err)
	}
	room := m.room(code)
	room.mu.Lock()
	before := room.Users["ada"].Score
	combo := room.Users["ada"].ComboLevel
	room.mu.Unlock()

	// Same word, different casing: normalization makes it a duplicate.
	rec, err := m.SubmitWord(context.Background(), code, "ada", "cat")
	if err != nil {
		t.Fatalf("duplicate submit: %v", err)
	}
	if rec != nil {
		t.Error("a duplicate must return no record")
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	u := room.Users["ada"]
	if u.Score != before || u.ComboLevel != combo {
		t.Error("a duplicate must not change score or combo")
	}
	if len(u.Words) != 1 {
		t.Errorf("word history has %d entries, want 1", len(u.Words))
	}
}

func TestSubmitWordSameWordDifferentPlayers(t *testing.T) {
	m, _ := newTestManager(t)
	code, _ := m.CreateRoom("", "ada", "conn-ada", RoomOptions{})
	if err := m.Join(code, "bob", "conn-bob", JoinOptions{}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := m.StartRound(code, "ada", testBoard(), 180); err != nil {
		t.Fatalf("StartRound: %v", err)
	}

	if _, err := m.SubmitWord(context.Background(), code, "ada", "CAT"); err != nil {
		t.Fatalf("ada submit: %v", err)
	}
	rec, err := m.SubmitWord(context.Background(), code, "bob", "CAT")
	if err != nil {
		t.Fatalf("bob submit: %v", err)
	}
	if rec == nil || rec.Score != 2 {
		t.Error("duplicates are per player, not per room")
	}
}

func TestSubmitWordRejectsNoPath(t *testing.T) {
	m, _ := newTestManager(t)
	code := mustCreateInProgress(t, m)

	if _, err := m.SubmitWord(context.Background(), code, "ada", "DOG"); !errors.Is(err, ErrNoPath) {
		t.Errorf("unreachable word: err = %v, want ErrNoPath", err)
	}
	if _, err := m.SubmitWord(context.Background(), code, "ada", "  "); !errors.Is(err, ErrEmptyWord) {
		t.Errorf("blank word: err = %v, want ErrEmptyWord", err)
	}
}

func TestSubmitWordAfterRoundEnds(t *testing.T) {
	m, _ := newTestManager(t)
	code := mustCreateInProgress(t, m)
	m.EndRound(code)

	if _, err := m.SubmitWord(context.Background(), code, "ada", "CAT"); !errors.Is(err, ErrRoundNotActive) {
		t.Errorf("submit after round end: err = %v, want ErrRoundNotActive", err)
	}
}

func TestUnknownWordGoesThroughValidation(t *testing.T) {
	m, _ := newTestManager(t)
	code := mustCreateInProgress(t, m)

	// Traceable on the board but absent from the dictionary; with no
	// validation endpoint configured the local verdict rejects it.
	rec, err := m.SubmitWord(context.Background(), code, "ada", "TAE")
	if err != nil {
		t.Fatalf("SubmitWord: %v", err)
	}
	if rec.Validated != models.ValidationPending {
		t.Fatalf("unknown word validation = %v, want pending", rec.Validated)
	}
	if rec.Score == 0 {
		t.Error("pending words still score optimistically")
	}

	room := m.room(code)
	deadline := time.Now().Add(2 * time.Second)
	for {
		room.mu.Lock()
		state := room.Users["ada"].Words[0].Validated
		room.mu.Unlock()
		if state == models.ValidationRejected {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("verdict never resolved, still %v", state)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEndRoundFinalizesAndBroadcastsSummary(t *testing.T) {
	m, bcast := newTestManager(t)
	code := mustCreateInProgress(t, m)

	if _, err := m.SubmitWord(context.Background(), code, "ada", "CRATE"); err != nil {
		t.Fatalf("SubmitWord: %v", err)
	}
	m.EndRound(code)

	room := m.room(code)
	room.mu.Lock()
	state := room.State
	room.mu.Unlock()
	if state != models.GameStateFinished {
		t.Errorf("room state = %v, want finished (no validations were pending)", state)
	}
	if bcast.countByType(models.EventRoundEnd) != 1 {
		t.Error("round end must broadcast exactly one summary")
	}
}

func TestEndRoundIsIdempotent(t *testing.T) {
	m, bcast := newTestManager(t)
	code := mustCreateInProgress(t, m)
	m.EndRound(code)
	m.EndRound(code)
	if got := bcast.countByType(models.EventRoundEnd); got != 1 {
		t.Errorf("double EndRound broadcast %d summaries, want 1", got)
	}
}

func TestLateJoinGate(t *testing.T) {
	m, _ := newTestManager(t)
	code := mustCreateInProgress(t, m)
	if err := m.Join(code, "late", "conn-late", JoinOptions{}); !errors.Is(err, ErrLateJoinClosed) {
		t.Errorf("mid-round join: err = %v, want ErrLateJoinClosed", err)
	}

	open, _ := m.CreateRoom("", "bea", "conn-bea", RoomOptions{AllowLateJoin: true})
	if err := m.StartRound(open, "bea", testBoard(), 180); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if err := m.Join(open, "late", "conn-late", JoinOptions{}); err != nil {
		t.Errorf("late join in an open room: %v", err)
	}
}

func TestStartRoundRequiresHost(t *testing.T) {
	m, _ := newTestManager(t)
	code, _ := m.CreateRoom("", "ada", "conn-ada", RoomOptions{})
	if err := m.Join(code, "bob", "conn-bob", JoinOptions{}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := m.StartRound(code, "bob", testBoard(), 0); !errors.Is(err, ErrNotHost) {
		t.Errorf("non-host start: err = %v, want ErrNotHost", err)
	}
	if err := m.StartRound(code, "ada", testBoard(), 0); err != nil {
		t.Fatalf("host start: %v", err)
	}
	if err := m.StartRound(code, "ada", testBoard(), 0); !errors.Is(err, ErrRoundActive) {
		t.Errorf("double start: err = %v, want ErrRoundActive", err)
	}
}

func TestReconnectionPreservesHistory(t *testing.T) {
	m, _ := newTestManager(t)
	code := mustCreateInProgress(t, m)
	if _, err := m.SubmitWord(context.Background(), code, "ada", "CAT"); err != nil {
		t.Fatalf("SubmitWord: %v", err)
	}

	m.Disconnect("conn-ada")
	room := m.room(code)
	room.mu.Lock()
	if room.Users["ada"].Connected {
		t.Fatal("disconnect should mark the seat dead")
	}
	room.mu.Unlock()

	// Rejoining with the same name is a reconnection, not a collision.
	if err := m.Join(code, "ada", "conn-ada-2", JoinOptions{}); err != nil {
		t.Fatalf("reconnect join: %v", err)
	}

	room.mu.Lock()
	u := room.Users["ada"]
	if !u.Connected || u.ConnID != "conn-ada-2" {
		t.Error("reconnection must rebind the seat to the new connection")
	}
	if len(u.Words) != 1 || u.Score == 0 {
		t.Error("reconnection must preserve the word history and score")
	}
	if u.graceTimer != nil {
		t.Error("reconnection must cancel the grace countdown")
	}
	room.mu.Unlock()

	// The new connection routes; the old one is gone.
	if gotCode, _, ok := m.lookup("conn-ada-2"); !ok || gotCode != code {
		t.Error("new connection should route to the room")
	}
	if _, _, ok := m.lookup("conn-ada"); ok {
		t.Error("old connection must be unrouted")
	}
}

func TestHostSuccessionOnLeave(t *testing.T) {
	m, _ := newTestManager(t)
	code, _ := m.CreateRoom("", "ada", "conn-ada", RoomOptions{})
	if err := m.Join(code, "bob", "conn-bob", JoinOptions{}); err != nil {
		t.Fatalf("Join: %v", err)
	}

	m.Leave(code, "ada")

	room := m.room(code)
	if room == nil {
		t.Fatal("room must survive while a human remains")
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.HostUsername != "bob" || !room.Users["bob"].IsHost {
		t.Error("the remaining human should inherit the host seat")
	}
}

func TestRoomDestroyedWhenLastHumanLeaves(t *testing.T) {
	m, bcast := newTestManager(t)
	code := mustCreateInProgress(t, m)

	room := m.room(code)
	m.Leave(code, "ada")

	if m.room(code) != nil {
		t.Fatal("room must be deleted when its last human leaves")
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if !room.destroyed {
		t.Error("destroyed flag must be set")
	}
	if room.roundTimer != nil || room.finalTimer != nil {
		t.Error("destruction must cancel the room's timers")
	}
	for _, u := range room.Users {
		if u.comboTimer != nil || u.graceTimer != nil {
			t.Errorf("destruction left a timer on %s", u.Username)
		}
	}
	found := false
	for _, dropped := range bcast.droppedRooms() {
		if dropped == code {
			found = true
		}
	}
	if !found {
		t.Error("destruction must tell the transport to drop the room")
	}
}

func TestAddBotSeatsSimulatedPlayer(t *testing.T) {
	m, _ := newTestManager(t)
	code, _ := m.CreateRoom("", "ada", "conn-ada", RoomOptions{})
	name, err := m.AddBot(code, 1)
	if err != nil {
		t.Fatalf("AddBot: %v", err)
	}

	room := m.room(code)
	room.mu.Lock()
	defer room.mu.Unlock()
	u := room.Users[name]
	if u == nil || !u.IsBot {
		t.Fatal("bot must be seated and flagged")
	}
	if room.humanCountLocked() != 1 {
		t.Error("bots must not count as humans")
	}
	if room.bots[name] == nil {
		t.Error("bot scheduler must be registered")
	}
}

func TestPresenceAFKBeforeIdle(t *testing.T) {
	m, _ := newTestManager(t)
	code, _ := m.CreateRoom("", "ada", "conn-ada", RoomOptions{})
	room := m.room(code)
	now := time.Now()

	room.mu.Lock()
	defer room.mu.Unlock()
	u := room.Users["ada"]

	// 50s of silence with the window focused: afk wins over idle.
	u.WindowFocused = true
	u.LastActivityAt = now.Add(-50 * time.Second)
	u.LastHeartbeatAt = now
	m.applyPresenceLocked(room, u, now)
	if u.Presence != models.PresenceAFK {
		t.Errorf("50s silent focused: presence = %v, want afk", u.Presence)
	}

	// 35s of silence: idle but not yet afk.
	u.LastActivityAt = now.Add(-35 * time.Second)
	m.applyPresenceLocked(room, u, now)
	if u.Presence != models.PresenceIdle {
		t.Errorf("35s silent: presence = %v, want idle", u.Presence)
	}

	// Recent activity but a blurred window also reads idle.
	u.LastActivityAt = now.Add(-2 * time.Second)
	u.WindowFocused = false
	m.applyPresenceLocked(room, u, now)
	if u.Presence != models.PresenceIdle {
		t.Errorf("blurred: presence = %v, want idle", u.Presence)
	}

	u.WindowFocused = true
	m.applyPresenceLocked(room, u, now)
	if u.Presence != models.PresenceActive {
		t.Errorf("recent and focused: presence = %v, want active", u.Presence)
	}
}

func TestConnectionHealthFromHeartbeats(t *testing.T) {
	m, _ := newTestManager(t)
	code, _ := m.CreateRoom("", "ada", "conn-ada", RoomOptions{})
	room := m.room(code)
	now := time.Now()

	room.mu.Lock()
	defer room.mu.Unlock()
	u := room.Users["ada"]
	u.LastActivityAt = now

	u.LastHeartbeatAt = now.Add(-16 * time.Second)
	m.applyPresenceLocked(room, u, now)
	if u.Connection != models.ConnWeak {
		t.Errorf("16s since heartbeat: connection = %v, want weak", u.Connection)
	}
	if u.graceTimer != nil {
		t.Error("a weak connection must not arm the grace countdown")
	}

	u.LastHeartbeatAt = now.Add(-31 * time.Second)
	m.applyPresenceLocked(room, u, now)
	if u.Connection != models.ConnTimeout {
		t.Errorf("31s since heartbeat: connection = %v, want timeout", u.Connection)
	}
	if u.graceTimer == nil {
		t.Error("crossing into timeout must arm the grace countdown")
	}
}

func TestHeartbeatRestoresHealth(t *testing.T) {
	m, _ := newTestManager(t)
	code, _ := m.CreateRoom("", "ada", "conn-ada", RoomOptions{})
	room := m.room(code)
	now := time.Now()

	room.mu.Lock()
	u := room.Users["ada"]
	u.LastHeartbeatAt = now.Add(-31 * time.Second)
	u.LastActivityAt = now.Add(-31 * time.Second)
	m.applyPresenceLocked(room, u, now)
	room.mu.Unlock()

	m.Heartbeat("conn-ada")

	room.mu.Lock()
	defer room.mu.Unlock()
	if u.Connection != models.ConnStable || u.Presence != models.PresenceActive {
		t.Errorf("heartbeat should restore stable/active, got %v/%v", u.Connection, u.Presence)
	}
	if u.graceTimer != nil {
		t.Error("heartbeat must cancel the grace countdown")
	}
}

func TestCleanupDestroysStaleRooms(t *testing.T) {
	m, _ := newTestManager(t)
	code, _ := m.CreateRoom("", "ada", "conn-ada", RoomOptions{})

	room := m.room(code)
	room.mu.Lock()
	room.LastActivity = time.Now().Add(-time.Hour)
	room.mu.Unlock()

	m.cleanupStaleRooms()
	if m.room(code) != nil {
		t.Error("a silent room past the staleness window must be destroyed")
	}
}

func TestShutdownDestroysAllRooms(t *testing.T) {
	m, bcast := newTestManager(t)
	a, _ := m.CreateRoom("", "ada", "conn-a", RoomOptions{})
	b, _ := m.CreateRoom("", "bea", "conn-b", RoomOptions{})

	m.Shutdown()
	if m.RoomCount() != 0 {
		t.Errorf("%d rooms survived shutdown", m.RoomCount())
	}
	dropped := bcast.droppedRooms()
	if len(dropped) != 2 {
		t.Fatalf("dropped %v, want both %s and %s", dropped, a, b)
	}
}
