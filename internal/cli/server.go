package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"vocab-test-service/internal/app"
	"vocab-test-service/internal/config"
	"vocab-test-service/internal/infra/dashscope"
	"vocab-test-service/internal/infra/memory"
	"vocab-test-service/internal/infra/postgres"
	redisinfra "vocab-test-service/internal/infra/redis"
	transport "vocab-test-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the vocabulary test server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// Without postgres everything runs on the in-memory store; handy for
	// local hacking, useless for real data.
	memStore := memory.NewStore()

	var users app.UserRepository = memStore
	var lists app.WordListRepository = memStore
	var wordWriter app.WordWriter = memStore
	var wordSource memory.WordSource = memStore
	var sessions app.TestSessionRepository = memStore
	var answers app.TestAnswerRepository = memStore
	var wrongWords app.WrongWordRepository = memStore

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		users = postgres.NewUserRepository(db)
		lists = postgres.NewWordListRepository(db)
		wordWriter = postgres.NewWordRepository(db)
		wordSource = postgres.NewWordLoader(pool)
		sessions = postgres.NewTestSessionRepository(db)
		answers = postgres.NewTestAnswerRepository(db)
		wrongWords = postgres.NewWrongWordRepository(db)
	}

	var tokens app.TokenStore = memStore
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		tokens = redisinfra.NewTokenStore(redisClient)
	}

	wordCacheTTL := config.TTLDuration(cfg.Words.CacheTTL, 10*time.Minute)
	wordReader := memory.NewWordCache(wordSource, wordCacheTTL)

	sessionTTL := config.TTLDuration(cfg.Session.TTL, 30*24*time.Hour)
	authService := app.NewAuthService(users, tokens, sessionTTL)

	broker := app.NewProgressBroker()
	testService := app.NewTestService(lists, wordReader, sessions, answers, wrongWords, broker)

	extractor := dashscope.NewClient(dashscope.Config{
		APIKey:      cfg.Dashscope.APIKey,
		BaseURL:     cfg.Dashscope.BaseURL,
		VisionModel: cfg.Dashscope.VisionModel,
		TextModel:   cfg.Dashscope.TextModel,
	})
	ingestService := app.NewIngestService(extractor, lists, wordWriter)

	srv := transport.NewServer(authService, testService, ingestService, broker, transport.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Server.SecureCookie,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting vocab test service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
