package app

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

// ==========================================
// CONFIGURATION
// ==========================================

type Config struct {
	Addr            string `json:"addr"`
	DBDriver        string `json:"db_driver"` // sqlite (default) or postgres
	DatabaseDSN     string `json:"database_dsn"`
	JWTSecret       string `json:"jwt_secret"`
	MaxCommentDepth int    `json:"max_comment_depth"`

	// Optional moderation notifier (Telegram).
	BotToken    string `json:"bot_token"`
	AdminChatID int64  `json:"admin_chat_id"`

	// Optional secondary activity-log sink.
	MongoURI string `json:"mongo_uri"`
	MongoDB  string `json:"mongo_db"`
}

var config Config

// ==========================================
// MAIN
// ==========================================

func Run() {
	initAppLayout()
	InitLogger()
	defer CloseLogger()
	markStart()

	// 1. Configuration: file first, env on top.
	if err := loadJSON(configFilePath, &config); err != nil {
		log.Printf("⚠️ No usable %s, relying on env: %v", configFilePath, err)
	}
	applyEnvOverrides(&config)
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.JWTSecret == "" {
		log.Fatalf("❌ Fatal: jwt_secret is not configured (set VIEGO_JWT_SECRET)")
	}

	// 2. Persistence store.
	store, err := NewStore(&config)
	if err != nil {
		log.Fatalf("❌ Fatal: %v", err)
	}

	// 3. Activity log: relational sink, plus Mongo when configured.
	activity := NewGormActivitySink(store.DB)
	if config.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoSink, err := NewMongoActivitySink(ctx, config.MongoURI, config.MongoDB)
		cancel()
		if err != nil {
			log.Printf("⚠️ Mongo activity sink unavailable, relational only: %v", err)
		} else {
			activity = NewTeeActivitySink(activity, mongoSink)
			log.Println("✅ Mongo activity sink connected.")
		}
	}

	// 4. Moderation notifier (no-op without a bot token).
	notifier := NewNotifier(config.BotToken, config.AdminChatID)

	// 5. HTTP API.
	server := NewServer(store, notifier, activity)
	safeGo("http-server", func() { server.Start(config.Addr) })
	safeGo("housekeeping", func() { startHousekeeping(server, store, notifier) })

	log.Printf("🚀 VieGo backend up on %s (driver: %s)", config.Addr, orDefault(config.DBDriver, "sqlite"))

	// Graceful shutdown.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("⏹ Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("⚠️ Failed to close database: %v", err)
	}
}

func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	if v := os.Getenv("VIEGO_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("VIEGO_DB_DRIVER"); v != "" {
		cfg.DBDriver = v
	}
	if v := os.Getenv("VIEGO_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("VIEGO_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("VIEGO_BOT_TOKEN"); v != "" {
		cfg.BotToken = v
	}
	if v := os.Getenv("VIEGO_ADMIN_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.AdminChatID = id
		}
	}
	if v := os.Getenv("VIEGO_MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("VIEGO_MONGO_DB"); v != "" {
		cfg.MongoDB = v
	}
	if v := os.Getenv("VIEGO_MAX_COMMENT_DEPTH"); v != "" {
		if depth, err := strconv.Atoi(v); err == nil {
			cfg.MaxCommentDepth = depth
		}
	}
}

func loadJSON(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
