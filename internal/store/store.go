package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

// PlayerRank is one leaderboard line from aggregate stats.
type PlayerRank struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
	Rounds   int    `json:"rounds"`
}

// Recorder persists round results and serves aggregate stats. Implementors
// must treat failures as bookkeeping problems: log and move on, never
// surface into gameplay.
type Recorder interface {
	RecordRound(ctx context.Context, summary models.RoundSummary) error
	TopPlayers(ctx context.Context, n int) ([]PlayerRank, error)
	Close() error
}

// Noop satisfies Recorder when no store is configured.
type Noop struct{}

func (Noop) RecordRound(context.Context, models.RoundSummary) error { return nil }
func (Noop) TopPlayers(context.Context, int) ([]PlayerRank, error)  { return nil, nil }
func (Noop) Close() error                                           { return nil }

const schema = `
CREATE TABLE IF NOT EXISTS round_results (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_code  TEXT NOT NULL,
	language   TEXT NOT NULL,
	ranked     INTEGER NOT NULL,
	username   TEXT NOT NULL,
	is_bot     INTEGER NOT NULL,
	score      INTEGER NOT NULL,
	words      INTEGER NOT NULL,
	valid_words INTEGER NOT NULL,
	best_word  TEXT,
	ended_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_round_results_user ON round_results(username);
`

// SQLite records rounds in a local database, optionally mirroring score
// aggregates into a redis sorted set for cross-instance leaderboards.
type SQLite struct {
	db  *sql.DB
	rdb *redis.Client
}

// OpenSQLite opens (creating if needed) the results database. redisAddr may
// be empty; aggregates then stay local.
func OpenSQLite(path, redisAddr string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply results schema: %w", err)
	}

	s := &SQLite{db: db}
	if redisAddr != "" {
		s.rdb = redis.NewClient(&redis.Options{Addr: redisAddr, DialTimeout: 5 * time.Second})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis aggregates unavailable, keeping sqlite only")
			_ = s.rdb.Close()
			s.rdb = nil
		}
	}
	return s, nil
}

func (s *SQLite) RecordRound(ctx context.Context, summary models.RoundSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin round tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO round_results
		(room_code, language, ranked, username, is_bot, score, words, valid_words, best_word, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare round insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range summary.Players {
		if _, err := stmt.ExecContext(ctx, summary.RoomCode, summary.Language, summary.Ranked,
			p.Username, p.IsBot, p.Score, p.Words, p.ValidWords, p.BestWord, summary.EndedAt); err != nil {
			return fmt.Errorf("insert round result: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit round results: %w", err)
	}

	if s.rdb != nil {
		for _, p := range summary.Players {
			if p.IsBot {
				continue
			}
			if err := s.rdb.ZIncrBy(ctx, "leaderboard:global", float64(p.Score), p.Username).Err(); err != nil {
				log.Warn().Err(err).Str("player", p.Username).Msg("redis aggregate update failed")
				break
			}
		}
	}
	return nil
}

func (s *SQLite) TopPlayers(ctx context.Context, n int) ([]PlayerRank, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username, SUM(score), COUNT(*)
		FROM round_results WHERE is_bot = 0
		GROUP BY username ORDER BY SUM(score) DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query top players: %w", err)
	}
	defer rows.Close()

	var out []PlayerRank
	for rows.Next() {
		var r PlayerRank
		if err := rows.Scan(&r.Username, &r.Score, &r.Rounds); err != nil {
			return nil, fmt.Errorf("scan top player: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	return s.db.Close()
}
