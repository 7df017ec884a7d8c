// Command server runs the Penki rules server: an authoritative game
// engine behind a websocket transport, with optional Redis action
// history and Postgres result persistence.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/BeautifulBabe-MTM/penki-server/internal/auth"
	"github.com/BeautifulBabe-MTM/penki-server/internal/config"
	"github.com/BeautifulBabe-MTM/penki-server/internal/database"
	"github.com/BeautifulBabe-MTM/penki-server/internal/history"
	"github.com/BeautifulBabe-MTM/penki-server/internal/room"
	"github.com/BeautifulBabe-MTM/penki-server/internal/ws"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	var recorder *history.Recorder
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable; action history disabled")
		} else {
			recorder = history.NewRecorder(rdb, cfg.HistoryTTL)
			log.WithField("addr", cfg.RedisAddr).Info("action history enabled")
		}
		cancel()
	}

	var results *database.Store
	if cfg.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		results, err = database.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.WithError(err).Warn("postgres unreachable; result persistence disabled")
		} else if err := results.EnsureSchema(ctx); err != nil {
			log.WithError(err).Fatal("schema setup failed")
		} else {
			log.Info("result persistence enabled")
			defer results.Close()
		}
		cancel()
	}

	var authSvc *auth.Service
	if cfg.JWTSecret != "" {
		authSvc = auth.New(cfg.JWTSecret, 0)
		log.Info("websocket token gate enabled")
	}

	rooms := room.NewStore(recorder, results, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rm, err := rooms.Create(cfg.GameConfig())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"roomId": rm.ID})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if authSvc == nil {
			http.Error(w, "token gate disabled", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		playerID := r.URL.Query().Get("player")
		if playerID == "" {
			playerID = uuid.NewString()
		}
		token, err := authSvc.CreateToken(playerID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"playerId": playerID, "token": token})
	})
	mux.Handle("/ws", ws.NewHandler(rooms, authSvc, log))

	log.WithField("addr", cfg.Addr).Info("penki server listening")
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
