package store

import (
	"context"
	"testing"
	"time"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(":memory:", "")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func summary(code string, players ...models.PlayerTotal) models.RoundSummary {
	now := time.Now()
	return models.RoundSummary{
		RoomCode:  code,
		Language:  "en",
		StartedAt: now.Add(-3 * time.Minute),
		EndedAt:   now,
		Players:   players,
	}
}

func TestRecordRoundAndTopPlayers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.RecordRound(ctx, summary("111111",
		models.PlayerTotal{Username: "ada", Score: 30, Words: 8, ValidWords: 7, BestWord: "CRATE"},
		models.PlayerTotal{Username: "bob", Score: 12, Words: 4, ValidWords: 4, BestWord: "TEAR"},
		models.PlayerTotal{Username: "Lexi", Score: 40, IsBot: true},
	))
	if err != nil {
		t.Fatalf("RecordRound: %v", err)
	}
	if err := s.RecordRound(ctx, summary("222222",
		models.PlayerTotal{Username: "bob", Score: 25, Words: 6, ValidWords: 6, BestWord: "RATED"},
	)); err != nil {
		t.Fatalf("RecordRound: %v", err)
	}

	top, err := s.TopPlayers(ctx, 10)
	if err != nil {
		t.Fatalf("TopPlayers: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("top players = %+v, want ada and bob only", top)
	}
	if top[0].Username != "bob" || top[0].Score != 37 || top[0].Rounds != 2 {
		t.Errorf("leader = %+v, want bob with 37 over 2 rounds", top[0])
	}
	if top[1].Username != "ada" || top[1].Score != 30 {
		t.Errorf("runner-up = %+v, want ada with 30", top[1])
	}
	for _, r := range top {
		if r.Username == "Lexi" {
			t.Error("bot rounds must never reach the leaderboard")
		}
	}
}

func TestTopPlayersEmpty(t *testing.T) {
	s := openTestStore(t)
	top, err := s.TopPlayers(context.Background(), 5)
	if err != nil {
		t.Fatalf("TopPlayers: %v", err)
	}
	if len(top) != 0 {
		t.Errorf("fresh store returned %+v", top)
	}
}
