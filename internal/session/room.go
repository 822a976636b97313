package session

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/ohadf2015/boggle-new-sub003/internal/achievements"
	"github.com/ohadf2015/boggle-new-sub003/internal/bot"
	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

// User is one player's authoritative record inside a room. Only the session
// manager mutates it, always under the owning room's lock.
type User struct {
	Username string
	ConnID   string
	Avatar   string
	AuthID   string
	IsHost   bool
	IsBot    bool

	Connected     bool
	WindowFocused bool

	Score      int
	ComboLevel int
	ComboPeak  int
	Words      []models.WordRecord
	seen       map[string]int // normalized word -> index into Words
	Awards     *achievements.Set

	LastActivityAt  time.Time
	LastHeartbeatAt time.Time
	Presence        models.PresenceStatus
	Connection      models.ConnectionStatus

	comboTimer *time.Timer
	graceTimer *time.Timer
}

func newUser(username, connID string, isBot bool) *User {
	now := time.Now()
	return &User{
		Username:        username,
		ConnID:          connID,
		IsBot:           isBot,
		Connected:       true,
		WindowFocused:   true,
		seen:            make(map[string]int),
		Awards:          achievements.NewSet(),
		LastActivityAt:  now,
		LastHeartbeatAt: now,
		Presence:        models.PresenceActive,
		Connection:      models.ConnStable,
	}
}

// resetForRound clears all per-round state; called for every user present
// when a round starts so nothing from earlier rounds leaks in.
func (u *User) resetForRound() {
	u.Score = 0
	u.ComboLevel = 0
	u.ComboPeak = 0
	u.Words = nil
	u.seen = make(map[string]int)
	u.Awards = achievements.NewSet()
	if u.comboTimer != nil {
		u.comboTimer.Stop()
		u.comboTimer = nil
	}
}

// cancelTimers stops every timer the user owns.
func (u *User) cancelTimers() {
	if u.comboTimer != nil {
		u.comboTimer.Stop()
		u.comboTimer = nil
	}
	if u.graceTimer != nil {
		u.graceTimer.Stop()
		u.graceTimer = nil
	}
}

// Room is one active match. All fields below mu are guarded by it; handlers
// snapshot what they need and broadcast after unlocking.
type Room struct {
	mu sync.Mutex

	Code          string
	Name          string
	Language      string
	HostUsername  string
	State         models.GameState
	Grid          models.Grid
	TimerSeconds  int
	Ranked        bool
	AllowLateJoin bool

	CreatedAt      time.Time
	LastActivity   time.Time
	RoundStartedAt time.Time

	Users map[string]*User
	bots  map[string]*bot.Bot

	roundTimer         *time.Timer
	finalTimer         *time.Timer
	pendingValidations int
	destroyed          bool
}

// connIDsLocked lists the connection ids of connected human users.
func (r *Room) connIDsLocked() []string {
	out := make([]string, 0, len(r.Users))
	for _, u := range r.Users {
		if u.Connected && !u.IsBot && u.ConnID != "" {
			out = append(out, u.ConnID)
		}
	}
	return out
}

// humanCountLocked counts non-bot users still tracked by the room.
func (r *Room) humanCountLocked() int {
	return lo.CountBy(lo.Values(r.Users), func(u *User) bool { return !u.IsBot })
}

func (r *Room) snapshotLocked() models.RoomSnapshot {
	players := make([]models.PlayerSnapshot, 0, len(r.Users))
	for _, u := range r.Users {
		players = append(players, models.PlayerSnapshot{
			Username:   u.Username,
			Avatar:     u.Avatar,
			IsHost:     u.IsHost,
			IsBot:      u.IsBot,
			Score:      u.Score,
			ComboLevel: u.ComboLevel,
			WordCount:  len(u.Words),
			Presence:   u.Presence,
			Connection: u.Connection,
			Connected:  u.Connected,
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Username < players[j].Username })

	return models.RoomSnapshot{
		Code:          r.Code,
		Name:          r.Name,
		Host:          r.HostUsername,
		Language:      r.Language,
		State:         r.State.String(),
		Grid:          r.Grid,
		TimerSeconds:  r.TimerSeconds,
		Ranked:        r.Ranked,
		AllowLateJoin: r.AllowLateJoin,
		Players:       players,
	}
}

// leaderboardLocked is the score-ordered view broadcast on every accepted
// submission (throttled by the hub).
func (r *Room) leaderboardLocked() []models.PlayerSnapshot {
	snap := r.snapshotLocked().Players
	sort.SliceStable(snap, func(i, j int) bool { return snap[i].Score > snap[j].Score })
	return snap
}

// cancelTimersLocked stops every timer owned by the room and its users and
// bots. Run on destruction; nothing may fire afterwards.
func (r *Room) cancelTimersLocked() {
	if r.roundTimer != nil {
		r.roundTimer.Stop()
		r.roundTimer = nil
	}
	if r.finalTimer != nil {
		r.finalTimer.Stop()
		r.finalTimer = nil
	}
	for _, u := range r.Users {
		u.cancelTimers()
	}
	for _, b := range r.bots {
		b.Stop()
	}
}

// summaryLocked builds the round summary for broadcast and bookkeeping.
func (r *Room) summaryLocked(endedAt time.Time) models.RoundSummary {
	players := make([]models.PlayerTotal, 0, len(r.Users))
	for _, u := range r.Users {
		valid := lo.CountBy(u.Words, func(w models.WordRecord) bool {
			return w.Validated == models.ValidationConfirmed
		})
		best := ""
		bestScore := -1
		for _, w := range u.Words {
			if w.Score > bestScore {
				best, bestScore = w.Word, w.Score
			}
		}
		awardNames := lo.Map(u.Awards.All(), func(a achievements.Award, _ int) string { return a.Rule })
		players = append(players, models.PlayerTotal{
			Username:     u.Username,
			Score:        u.Score,
			Words:        len(u.Words),
			ValidWords:   valid,
			BestWord:     best,
			Achievements: awardNames,
			IsBot:        u.IsBot,
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Score > players[j].Score })

	winner := ""
	if len(players) > 0 {
		winner = players[0].Username
	}
	return models.RoundSummary{
		RoomCode:   r.Code,
		Language:   r.Language,
		Ranked:     r.Ranked,
		StartedAt:  r.RoundStartedAt,
		EndedAt:    endedAt,
		Players:    players,
		WinnerName: winner,
	}
}
