package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"careline-chatbot/internal/agent"
	"careline-chatbot/internal/config"
	"careline-chatbot/internal/db"
	httpserver "careline-chatbot/internal/http"
	"careline-chatbot/internal/llm"
	"careline-chatbot/internal/profile"
	"careline-chatbot/internal/review"
	"careline-chatbot/internal/safety"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config file")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	// Open and verify the database connection, then apply the schema.
	dbConn, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}
	if err := db.Migrate(context.Background(), dbConn); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	repo := db.NewRepository(dbConn)

	// Patient context: Postgres in real deployments, static demo data
	// otherwise.
	var provider agent.ContextProvider
	switch cfg.Context.Source {
	case config.SourcePostgres:
		provider = profile.NewPostgresProvider(dbConn)
	default:
		provider = profile.NewStaticProvider()
	}

	// Review queue: Redis when configured, Postgres NOTIFY otherwise.
	var notifier review.Notifier
	if cfg.Redis.URL != "" {
		rn, err := review.NewRedisNotifier(cfg.Redis.URL, cfg.Redis.QueueKey)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rn.Close()
		notifier = rn
	} else {
		notifier = review.NewPGNotifier(dbConn, "")
	}

	gate := safety.NewGate(
		cfg.Safety.Triggers,
		notifier,
		time.Duration(cfg.Safety.NotifyTimeoutSeconds)*time.Second,
		log.Named("safety"),
	)
	invoker := llm.NewOpenAIInvoker(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature)
	runner := agent.NewRunner(provider, invoker, gate, agent.RunnerConfig{
		ContextTimeout: time.Duration(cfg.Context.TimeoutSeconds) * time.Second,
		InvokeTimeout:  time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	}, log.Named("agent"))

	srv, err := httpserver.NewServer(runner, repo, provider, cfg.Server.AllowedOrigins, log.Named("http"))
	if err != nil {
		log.Fatal("failed to construct server", zap.Error(err))
	}

	addr := ":" + cfg.Server.Port
	log.Info("listening", zap.String("addr", addr), zap.String("context_source", cfg.Context.Source))
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
