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
	"golang.org/x/crypto/bcrypt"

	"classquiz-service/internal/app"
	"classquiz-service/internal/config"
	"classquiz-service/internal/domain"
	"classquiz-service/internal/infra/memory"
	pgstore "classquiz-service/internal/infra/postgres"
	"classquiz-service/internal/infra/quizfs"
	redisinfra "classquiz-service/internal/infra/redis"
	transport "classquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz platform server",
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
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 12*time.Hour)

	var loader memory.QuizLoader
	var rosterStore app.RosterStore
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgstore.NewQuizLoader(pool)

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		rosterStore = pgstore.NewRosterStore(db)
	} else {
		quizDir := cfg.Quizzes.Dir
		if quizDir == "" {
			quizDir = "quizzes"
		}
		fsLoader, err := quizfs.NewLoader(quizDir)
		if err != nil {
			return err
		}
		loader = fsLoader
		rosterStore = seedDemoRoster(ctx)
	}

	quizTTL := config.TTLDuration(cfg.Quizzes.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var attempts app.AttemptStore
	if redisClient != nil {
		attempts = redisinfra.NewAttemptStore(redisClient, sessionTTL)
	} else {
		attempts = memory.NewAttemptStore()
	}

	feed := app.NewGroupFeed()
	boards := app.NewLeaderboardService(rosterStore, attempts, cfg.Scoring, feed)
	quizzes := app.NewQuizService(quizRepo, attempts, rosterStore, cfg.Scoring, boards)
	roster := app.NewRosterService(rosterStore)
	wsHandler := transport.NewWSHandler(quizzes, boards, roster)

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
		log.Printf("starting classquiz service on :%s", finalPort)
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

// seedDemoRoster provides a minimal in-memory roster when no Postgres is
// configured: one teacher, one group, two students. Demo credentials only.
func seedDemoRoster(ctx context.Context) app.RosterStore {
	store := memory.NewRosterStore()
	groupID := "group-7a"
	_ = store.CreateGroup(ctx, domain.Group{ID: groupID, Name: "Class 7a"})
	for _, account := range []struct {
		id, name, password string
		role               domain.Role
		group              *string
	}{
		{"teacher-1", "Ms. Keller", "teachme", domain.RoleTeacher, nil},
		{"student-1", "Anna", "anna", domain.RoleStudent, &groupID},
		{"student-2", "Ben", "ben", domain.RoleStudent, &groupID},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(account.password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("seed roster: %v", err)
			continue
		}
		_ = store.CreateStudent(ctx, domain.Student{
			ID:           account.id,
			Name:         account.name,
			PasswordHash: string(hash),
			Role:         account.role,
			GroupID:      account.group,
		})
	}
	return store
}
