package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ohadf2015/boggle-new-sub003/internal/config"
	"github.com/ohadf2015/boggle-new-sub003/internal/dictionary"
	"github.com/ohadf2015/boggle-new-sub003/internal/hub"
	"github.com/ohadf2015/boggle-new-sub003/internal/pathcheck"
	"github.com/ohadf2015/boggle-new-sub003/internal/session"
	"github.com/ohadf2015/boggle-new-sub003/internal/solver"
	"github.com/ohadf2015/boggle-new-sub003/internal/store"
	"github.com/ohadf2015/boggle-new-sub003/internal/util"
)

// fallbackWords keeps the engine playable when no dictionary files ship with
// the deployment (dev environments, smoke tests).
var fallbackWords = []string{
	"ACE", "ACT", "APE", "ARC", "ARE", "ART", "ATE", "BAR", "BAT", "BEAR",
	"BEAT", "CAR", "CARE", "CART", "CAT", "CRATE", "EAR", "EAST", "EAT",
	"ERA", "NET", "NEST", "RACE", "RAT", "RATE", "REACT", "SEA", "SEAT",
	"STAR", "TAR", "TEA", "TEAR", "TEN", "TRACE",
}

func main() {
	cfg := config.Load()

	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	startTime := time.Now()
	util.LogInfo("Starting word-race engine on port %s", cfg.Port)

	dict := dictionary.NewService(cfg.DictionaryDir, cfg.ValidateURL)
	if err := dict.Load("en"); err != nil {
		util.LogWarn("No dictionary file for en (%v), using embedded fallback list", err)
		dict.LoadWords("en", fallbackWords)
	}

	sv := solver.New(dict, cfg.TrieTTL, cfg.SolveTTL, cfg.SolveCacheMax)

	pool := pathcheck.NewPool(0, cfg.WorkerQueueMax, cfg.WorkerTimeout)
	pool.Warm()
	util.LogInfo("Path validator pool warmed with %d workers", pool.Workers())

	var rec store.Recorder
	if cfg.ResultsDB != "" {
		if s, err := store.OpenSQLite(cfg.ResultsDB, cfg.RedisAddr); err != nil {
			util.LogWarn("Results store unavailable (%v), continuing without persistence", err)
			rec = store.Noop{}
		} else {
			rec = s
		}
	} else {
		rec = store.Noop{}
	}

	fanout, err := hub.NewFanout(cfg.RedisAddr)
	if err != nil {
		util.LogWarn("Redis fanout unavailable (%v), running single-instance", err)
	}

	h := hub.New(cfg.LeaderboardThrottle, fanout)
	manager := session.NewManager(cfg, sv, pool, dict, h, rec)
	h.SetHandler(manager)
	manager.StartSweeps()

	limiter := newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.cleanup(1 * time.Hour)
		}
	}()

	if getEnv("GIN_MODE", "") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression))
	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		util.LogWarn("Failed to set trusted proxies: %v", err)
	}

	router.GET("/ws", rateLimitMiddleware(limiter), h.ServeWS)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": util.FormatUptime(time.Since(startTime)),
		})
	})
	router.GET("/stats", func(c *gin.Context) {
		tries, solved := sv.CacheStats()
		top, err := rec.TopPlayers(c.Request.Context(), 10)
		if err != nil {
			zlog.Warn().Err(err).Msg("top players query failed")
		}
		c.JSON(http.StatusOK, gin.H{
			"rooms":       manager.RoomCount(),
			"connections": h.ConnCount(),
			"trieCache":   tries,
			"solveCache":  solved,
			"topPlayers":  top,
		})
	})

	startServer(router, cfg.Port, func() {
		// Drain order: tell clients, tear rooms down, stop the pool.
		h.Shutdown("server restarting, please reconnect shortly")
		manager.Shutdown()
		pool.Close()
		if err := rec.Close(); err != nil {
			util.LogWarn("Results store close: %v", err)
		}
	})
}

func startServer(router *gin.Engine, port string, drain func()) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		util.LogInfo("Shutdown signal received, notifying clients and draining...")
		drain()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			util.LogWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	util.LogInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		util.LogFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	util.LogInfo("Server shutdown complete")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
