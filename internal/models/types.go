package models

import (
	"strings"
	"time"
)

// GameState is the lifecycle of a room. Transitions only move forward within
// a round: waiting -> in-progress -> validating -> finished, then back to
// waiting when a new round is armed.
type GameState int

const (
	GameStateWaiting GameState = iota
	GameStateInProgress
	GameStateValidating
	GameStateFinished
)

func (s GameState) String() string {
	switch s {
	case GameStateWaiting:
		return "waiting"
	case GameStateInProgress:
		return "in-progress"
	case GameStateValidating:
		return "validating"
	case GameStateFinished:
		return "finished"
	}
	return "unknown"
}

// Validation is the tri-state verdict on a submitted word. Pending means the
// community/AI lookup has not answered yet; it is distinct from rejected so
// scoring and achievements can tell "not yet judged" from "judged bad".
type Validation int

const (
	ValidationPending Validation = iota
	ValidationConfirmed
	ValidationRejected
)

func (v Validation) String() string {
	switch v {
	case ValidationConfirmed:
		return "valid"
	case ValidationRejected:
		return "invalid"
	}
	return "pending"
}

type PresenceStatus string

const (
	PresenceActive PresenceStatus = "active"
	PresenceIdle   PresenceStatus = "idle"
	PresenceAFK    PresenceStatus = "afk"
)

type ConnectionStatus string

const (
	ConnStable  ConnectionStatus = "stable"
	ConnWeak    ConnectionStatus = "weak"
	ConnTimeout ConnectionStatus = "timeout"
)

// Cell addresses one grid position.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Grid is a rectangular letter board. Cells hold already-normalized,
// upper-cased letters (a cell may hold a multi-rune letter such as "QU").
type Grid [][]string

func (g Grid) Rows() int {
	return len(g)
}

func (g Grid) Cols() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

func (g Grid) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < len(g) && c.Col >= 0 && c.Col < len(g[c.Row])
}

func (g Grid) At(c Cell) string {
	return g[c.Row][c.Col]
}

// Flatten produces the cache signature for a board: rows joined in order.
func (g Grid) Flatten() string {
	var b strings.Builder
	for _, row := range g {
		b.WriteString(strings.Join(row, ""))
	}
	return b.String()
}

// WordRecord is one accepted submission in a user's per-round history.
type WordRecord struct {
	Word           string        `json:"word"`
	Score          int           `json:"score"`
	ComboBonus     int           `json:"comboBonus"`
	ComboLevel     int           `json:"comboLevel"`
	Timestamp      time.Time     `json:"timestamp"`
	TimeSinceStart time.Duration `json:"timeSinceStart"`
	Validated      Validation    `json:"validated"`
	AutoValidated  bool          `json:"autoValidated"`
	Path           []Cell        `json:"path,omitempty"`
}

// Event is the envelope exchanged with the presentation layer over the
// persistent connection.
type Event struct {
	Type     string `json:"type"`
	Room     string `json:"room,omitempty"`
	Username string `json:"username,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// Inbound event types.
const (
	EventHost      = "host"
	EventJoin      = "join"
	EventStart     = "start_round"
	EventSubmit    = "submit_word"
	EventHeartbeat = "heartbeat"
	EventChat      = "chat"
	EventFocus     = "focus"
	EventLeave     = "leave"
)

// Outbound event types.
const (
	EventRoomState   = "room_state"
	EventLeaderboard = "leaderboard"
	EventAchievement = "achievement"
	EventWordResult  = "word_result"
	EventRoundEnd    = "round_end"
	EventShutdown    = "server_shutdown"
	EventError       = "error"
)

// PlayerSnapshot is the per-player slice of a room snapshot.
type PlayerSnapshot struct {
	Username   string           `json:"username"`
	Avatar     string           `json:"avatar,omitempty"`
	IsHost     bool             `json:"isHost"`
	IsBot      bool             `json:"isBot"`
	Score      int              `json:"score"`
	ComboLevel int              `json:"comboLevel"`
	WordCount  int              `json:"wordCount"`
	Presence   PresenceStatus   `json:"presence"`
	Connection ConnectionStatus `json:"connection"`
	Connected  bool             `json:"connected"`
}

// RoomSnapshot is the authoritative room view broadcast to clients.
type RoomSnapshot struct {
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	Host          string           `json:"host"`
	Language      string           `json:"language"`
	State         string           `json:"state"`
	Grid          Grid             `json:"grid,omitempty"`
	TimerSeconds  int              `json:"timerSeconds"`
	Ranked        bool             `json:"ranked"`
	AllowLateJoin bool             `json:"allowLateJoin"`
	Players       []PlayerSnapshot `json:"players"`
}

// RoundSummary is handed to the results store and the round-end broadcast.
type RoundSummary struct {
	RoomCode   string        `json:"roomCode"`
	Language   string        `json:"language"`
	Ranked     bool          `json:"ranked"`
	StartedAt  time.Time     `json:"startedAt"`
	EndedAt    time.Time     `json:"endedAt"`
	Players    []PlayerTotal `json:"players"`
	WinnerName string        `json:"winner"`
}

// PlayerTotal is one player's final line in a round summary.
type PlayerTotal struct {
	Username     string   `json:"username"`
	Score        int      `json:"score"`
	Words        int      `json:"words"`
	ValidWords   int      `json:"validWords"`
	BestWord     string   `json:"bestWord"`
	Achievements []string `json:"achievements"`
	IsBot        bool     `json:"isBot"`
}
