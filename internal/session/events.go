package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ohadf2015/boggle-new-sub003/internal/bot"
	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

// hostPayload is the data of a host event.
type hostPayload struct {
	Name          string `json:"name"`
	Language      string `json:"language"`
	TimerSeconds  int    `json:"timerSeconds"`
	Ranked        bool   `json:"ranked"`
	AllowLateJoin bool   `json:"allowLateJoin"`
	Bots          int    `json:"bots"`
	BotDifficulty int    `json:"botDifficulty"`
	Avatar        string `json:"avatar"`
	AuthID        string `json:"authId"`
}

type joinPayload struct {
	Avatar string `json:"avatar"`
	AuthID string `json:"authId"`
}

type startPayload struct {
	TimerSeconds int         `json:"timerSeconds"`
	Grid         models.Grid `json:"grid"`
}

type submitPayload struct {
	Word string `json:"word"`
}

type focusPayload struct {
	Focused bool `json:"focused"`
}

// decodePayload round-trips the already-unmarshalled event data into a
// typed payload.
func decodePayload(data any, v any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// HandleEvent dispatches one inbound client event. It implements the hub's
// EventHandler. Every dispatch is panic-isolated so a failure in one room's
// handling cannot take the process down with it.
func (m *Manager) HandleEvent(connID string, ev models.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Str("conn", connID).Str("type", ev.Type).Msg("event handler panicked")
		}
	}()

	switch ev.Type {
	case models.EventHost:
		m.handleHost(connID, ev)
	case models.EventJoin:
		m.handleJoin(connID, ev)
	case models.EventStart:
		m.handleStart(connID, ev)
	case models.EventSubmit:
		m.handleSubmit(connID, ev)
	case models.EventHeartbeat:
		m.Heartbeat(connID)
	case models.EventChat:
		m.handleChat(connID, ev)
	case models.EventFocus:
		var p focusPayload
		if decodePayload(ev.Data, &p) {
			m.SetFocus(connID, p.Focused)
		}
	case models.EventLeave:
		if code, username, ok := m.lookup(connID); ok {
			m.Leave(code, username)
		}
	default:
		m.sendError(connID, "unknown event type")
	}
}

// HandleDisconnect implements the hub's EventHandler.
func (m *Manager) HandleDisconnect(connID string) {
	m.Disconnect(connID)
}

func (m *Manager) handleHost(connID string, ev models.Event) {
	if ev.Username == "" {
		m.sendError(connID, "username required")
		return
	}
	var p hostPayload
	decodePayload(ev.Data, &p)

	code, err := m.CreateRoom(ev.Room, ev.Username, connID, RoomOptions{
		Name:          p.Name,
		Language:      p.Language,
		TimerSeconds:  p.TimerSeconds,
		Ranked:        p.Ranked,
		AllowLateJoin: p.AllowLateJoin,
	})
	if err != nil {
		m.sendError(connID, err.Error())
		return
	}
	for i := 0; i < p.Bots && i < 8; i++ {
		if _, err := m.AddBot(code, bot.Difficulty(p.BotDifficulty)); err != nil {
			break
		}
	}
}

func (m *Manager) handleJoin(connID string, ev models.Event) {
	if ev.Room == "" || ev.Username == "" {
		m.sendError(connID, "room and username required")
		return
	}
	var p joinPayload
	decodePayload(ev.Data, &p)
	if err := m.Join(ev.Room, ev.Username, connID, JoinOptions{Avatar: p.Avatar, AuthID: p.AuthID}); err != nil {
		m.sendError(connID, err.Error())
	}
}

func (m *Manager) handleStart(connID string, ev models.Event) {
	code, username, ok := m.lookup(connID)
	if !ok {
		m.sendError(connID, "not in a room")
		return
	}
	var p startPayload
	decodePayload(ev.Data, &p)
	if err := m.StartRound(code, username, p.Grid, p.TimerSeconds); err != nil {
		m.sendError(connID, err.Error())
	}
}

func (m *Manager) handleSubmit(connID string, ev models.Event) {
	code, username, ok := m.lookup(connID)
	if !ok {
		return
	}
	var p submitPayload
	if !decodePayload(ev.Data, &p) || p.Word == "" {
		m.sendError(connID, "word required")
		return
	}

	_, err := m.SubmitWord(context.Background(), code, username, p.Word)
	switch {
	case err == nil:
	case errors.Is(err, ErrRoundNotActive), errors.Is(err, ErrNotInRoom):
		// State-consistency violations are benign no-ops, not client errors.
	default:
		m.sendError(connID, err.Error())
	}
}

func (m *Manager) handleChat(connID string, ev models.Event) {
	code, username, ok := m.lookup(connID)
	if !ok {
		return
	}
	m.Activity(connID)

	room := m.room(code)
	if room == nil {
		return
	}
	room.mu.Lock()
	connIDs := room.connIDsLocked()
	room.mu.Unlock()
	m.bcast.Send(connIDs, models.Event{Type: models.EventChat, Room: code, Username: username, Data: ev.Data})
}

func (m *Manager) sendError(connID, message string) {
	m.bcast.SendTo(connID, models.Event{Type: models.EventError, Data: message})
}
