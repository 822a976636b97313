package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ohadf2015/boggle-new-sub003/internal/models"
)

// Fanout mirrors room broadcasts to other server instances over redis
// pub/sub. The engine behaves identically when no fanout is configured; all
// methods are nil-receiver safe.
type Fanout struct {
	rdb *redis.Client
}

// NewFanout connects to redis, or returns (nil, nil) for an empty address so
// single-instance mode needs no special casing at call sites.
func NewFanout(addr string) (*Fanout, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis fanout: %w", err)
	}
	log.Info().Str("addr", addr).Msg("redis fanout connected")
	return &Fanout{rdb: rdb}, nil
}

// Publish mirrors an event on the room's channel. Failures are logged only;
// local delivery already happened.
func (f *Fanout) Publish(roomCode string, ev models.Event) {
	if f == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.rdb.Publish(ctx, "room:"+roomCode, payload).Err(); err != nil {
		log.Warn().Err(err).Str("room", roomCode).Msg("fanout publish failed")
	}
}

// Close releases the redis connection.
func (f *Fanout) Close() {
	if f == nil {
		return
	}
	_ = f.rdb.Close()
}
