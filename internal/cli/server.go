package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-game-service/internal/app"
	"quiz-game-service/internal/config"
	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
	"quiz-game-service/internal/infra/memory"
	pgloader "quiz-game-service/internal/infra/postgres"
	redisinfra "quiz-game-service/internal/infra/redis"
	transport "quiz-game-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz game server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = pgloader.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var archive app.ResultsArchiver = memory.NewResultsArchive()
	if redisClient != nil {
		archive = redisinfra.NewResultsArchive(redisClient, redisTTL)
	}

	countdown := config.Duration(cfg.Game.Countdown, domain.CountdownSeconds*time.Second)
	scheduler := game.NewTimerScheduler()
	defer scheduler.CancelAll()
	registry := game.NewRegistry(scheduler, countdown)

	service := app.NewGameService(registry, quizRepo, archive)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz game service on :%s", finalPort)
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

// sampleQuizzes provides a minimal set of quiz data; swap this loader with a
// Postgres-backed one in production.
func sampleQuizzes() map[int64]domain.QuizSnapshot {
	return map[int64]domain.QuizSnapshot{
		1: {
			QuizID:      1,
			Name:        "General knowledge",
			Description: "Warm-up quiz",
			TimeLimit:   30,
			Questions: []domain.Question{
				{
					QuestionID: 1,
					Question:   "What is 2 + 2?",
					TimeLimit:  20,
					Points:     5,
					AnswerOptions: []domain.AnswerOption{
						{AnswerID: 1, Answer: "3", Colour: "red", Correct: false},
						{AnswerID: 2, Answer: "4", Colour: "blue", Correct: true},
						{AnswerID: 3, Answer: "5", Colour: "green", Correct: false},
						{AnswerID: 4, Answer: "22", Colour: "yellow", Correct: false},
					},
				},
				{
					QuestionID: 2,
					Question:   "Which of these are primary colours?",
					TimeLimit:  20,
					Points:     10,
					AnswerOptions: []domain.AnswerOption{
						{AnswerID: 1, Answer: "Red", Colour: "red", Correct: true},
						{AnswerID: 2, Answer: "Green", Colour: "green", Correct: false},
						{AnswerID: 3, Answer: "Blue", Colour: "blue", Correct: true},
						{AnswerID: 4, Answer: "Purple", Colour: "yellow", Correct: false},
					},
				},
			},
		},
	}
}
