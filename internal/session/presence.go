package session

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

// Heartbeat records a liveness ping. A heartbeat is also activity: presence
// returns to active and any timeout grace countdown is cancelled.
func (m *Manager) Heartbeat(connID string) {
	code, username, ok := m.lookup(connID)
	if !ok {
		return
	}
	room := m.room(code)
	if room == nil {
		return
	}

	room.mu.Lock()
	if u := room.Users[username]; u != nil && u.ConnID == connID {
		now := time.Now()
		u.LastHeartbeatAt = now
		u.LastActivityAt = now
		u.Connection = models.ConnStable
		u.Presence = models.PresenceActive
		if u.graceTimer != nil {
			u.graceTimer.Stop()
			u.graceTimer = nil
		}
		room.LastActivity = now
	}
	room.mu.Unlock()
}

// Activity records a gameplay action (chat, input) without a word submit.
func (m *Manager) Activity(connID string) {
	code, username, ok := m.lookup(connID)
	if !ok {
		return
	}
	room := m.room(code)
	if room == nil {
		return
	}
	room.mu.Lock()
	if u := room.Users[username]; u != nil {
		now := time.Now()
		u.LastActivityAt = now
		u.Presence = models.PresenceActive
		room.LastActivity = now
	}
	room.mu.Unlock()
}

// SetFocus tracks window focus; a blurred window reads as idle immediately.
func (m *Manager) SetFocus(connID string, focused bool) {
	code, username, ok := m.lookup(connID)
	if !ok {
		return
	}
	room := m.room(code)
	if room == nil {
		return
	}
	room.mu.Lock()
	if u := room.Users[username]; u != nil {
		u.WindowFocused = focused
		if focused {
			u.LastActivityAt = time.Now()
			u.Presence = models.PresenceActive
		} else if u.Presence == models.PresenceActive {
			u.Presence = models.PresenceIdle
		}
	}
	room.mu.Unlock()
}

func (m *Manager) lookup(connID string) (code, username string, ok bool) {
	codeV, ok1 := m.connRoom.Load(connID)
	userV, ok2 := m.connUser.Load(connID)
	if !ok1 || !ok2 {
		return "", "", false
	}
	return codeV.(string), userV.(string), true
}

// StartSweeps launches the periodic presence and staleness sweeps. They stop
// when the manager shuts down.
func (m *Manager) StartSweeps() {
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.sweepPresence()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(m.cfg.CleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.cleanupStaleRooms()
				m.solver.Sweep()
			}
		}
	}()
	log.Info().Msg("presence and cleanup sweeps started")
}

// sweepPresence applies the presence and connection-health state machines to
// every connected human. The afk check runs before the idle check: 50
// seconds of silence is afk even with the window focused.
func (m *Manager) sweepPresence() {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	now := time.Now()
	for _, room := range rooms {
		changed := false
		room.mu.Lock()
		code := room.Code
		for _, u := range room.Users {
			if u.IsBot || !u.Connected {
				continue
			}
			changed = m.applyPresenceLocked(room, u, now) || changed
		}
		room.mu.Unlock()
		if changed {
			m.broadcastState(code)
		}
	}
}

func (m *Manager) applyPresenceLocked(room *Room, u *User, now time.Time) bool {
	prevPresence := u.Presence
	prevConn := u.Connection

	inactive := now.Sub(u.LastActivityAt)
	switch {
	case inactive >= m.cfg.AFKAfter:
		u.Presence = models.PresenceAFK
	case inactive >= m.cfg.IdleAfter || !u.WindowFocused:
		u.Presence = models.PresenceIdle
	default:
		u.Presence = models.PresenceActive
	}

	silent := now.Sub(u.LastHeartbeatAt)
	switch {
	case silent >= m.cfg.TimeoutAfter:
		u.Connection = models.ConnTimeout
	case silent >= m.cfg.WeakAfter:
		u.Connection = models.ConnWeak
	default:
		u.Connection = models.ConnStable
	}

	// Crossing into timeout arms the departure grace countdown; a weak
	// connection is only a warning.
	if u.Connection == models.ConnTimeout && prevConn != models.ConnTimeout && u.graceTimer == nil {
		code := room.Code
		username := u.Username
		u.graceTimer = time.AfterFunc(m.cfg.GracePeriod, func() {
			m.expireTimedOut(code, username)
		})
		log.Info().Str("room", code).Str("user", username).Msg("connection timed out, grace period armed")
	}

	return u.Presence != prevPresence || u.Connection != prevConn
}

// expireTimedOut departs a user whose connection never recovered within the
// grace period.
func (m *Manager) expireTimedOut(code, username string) {
	room := m.room(code)
	if room == nil {
		return
	}
	room.mu.Lock()
	u := room.Users[username]
	stillDead := u != nil && u.Connection == models.ConnTimeout
	room.mu.Unlock()
	if stillDead {
		m.removeUser(code, username, true)
	}
}

// cleanupStaleRooms deletes rooms that are empty or silent beyond the
// staleness window.
func (m *Manager) cleanupStaleRooms() {
	cutoff := time.Now().Add(-m.cfg.RoomStaleAfter)

	m.mu.RLock()
	codes := make([]string, 0, len(m.rooms))
	for code, room := range m.rooms {
		room.mu.Lock()
		stale := room.LastActivity.Before(cutoff) || room.humanCountLocked() == 0
		room.mu.Unlock()
		if stale {
			codes = append(codes, code)
		}
	}
	m.mu.RUnlock()

	for _, code := range codes {
		m.destroyRoom(code)
	}
	if len(codes) > 0 {
		log.Info().Int("rooms", len(codes)).Msg("cleaned up stale rooms")
	}
}
