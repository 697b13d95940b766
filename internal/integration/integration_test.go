package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"classquiz-service/internal/app"
	"classquiz-service/internal/config"
	"classquiz-service/internal/domain"
	pgstore "classquiz-service/internal/infra/postgres"
	pgmigrations "classquiz-service/internal/infra/postgres/migrations"
	redisinfra "classquiz-service/internal/infra/redis"
)

func TestScoredAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, ctx, pgURL)
	defer db.Close()
	seedQuiz(t, ctx, db, "capitals", sampleQuiz())

	store := pgstore.NewRosterStore(db)
	groupID := "group-1"
	if err := store.CreateGroup(ctx, domain.Group{ID: groupID, Name: "Class 7a"}); err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, s := range []domain.Student{
		{ID: "s1", Name: "Anna", PasswordHash: "x", Role: domain.RoleStudent, GroupID: &groupID},
		{ID: "s2", Name: "Ben", PasswordHash: "x", Role: domain.RoleStudent, GroupID: &groupID},
	} {
		if err := store.CreateStudent(ctx, s); err != nil {
			t.Fatalf("create student: %v", err)
		}
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizRepo := redisinfra.NewQuizRepository(redisClient, pgstore.NewQuizLoader(pool), 5*time.Minute)
	attempts := redisinfra.NewAttemptStore(redisClient, 5*time.Minute)

	scoring := config.Scoring{XPPerCorrect: 10, DailyLoginBonus: 5}
	feed := app.NewGroupFeed()
	boards := app.NewLeaderboardService(store, attempts, scoring, feed)
	quizzes := app.NewQuizService(quizRepo, attempts, store, scoring, boards)

	if _, _, err := quizzes.StartAttempt(ctx, "s1", "capitals", false); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i, answer := range []string{"Paris", "Florence", "MADRID"} {
		if _, err := quizzes.SubmitAnswer(ctx, "s1", "capitals", i, answer); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	anna, err := store.Student(ctx, "s1")
	if err != nil {
		t.Fatalf("student: %v", err)
	}
	if anna.XP != 20 {
		t.Fatalf("expected 20 xp, got %d", anna.XP)
	}
	progress, ok, err := store.Progress(ctx, "s1", "capitals")
	if err != nil || !ok {
		t.Fatalf("progress: ok=%v err=%v", ok, err)
	}
	if !progress.Completed || progress.XPEarned != 20 || len(progress.Transcript) != 3 {
		t.Fatalf("unexpected ledger %+v", progress)
	}

	// Scored re-entry redirects; nothing mutates.
	if _, _, err := quizzes.StartAttempt(ctx, "s1", "capitals", false); !errors.Is(err, domain.ErrQuizCompleted) {
		t.Fatalf("expected completed redirect, got %v", err)
	}

	board, err := boards.RankGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if board.Entries[0].StudentID != "s1" || board.Entries[0].XP != 20 {
		t.Fatalf("expected Anna leading, got %+v", board.Entries)
	}

	// Daily bonus is claimed once per session through Redis.
	view, err := boards.Dashboard(ctx, "s1")
	if err != nil || !view.BonusGranted || view.XP != 25 {
		t.Fatalf("expected first dashboard bonus, got %+v err=%v", view, err)
	}
	view, _ = boards.Dashboard(ctx, "s1")
	if view.BonusGranted || view.XP != 25 {
		t.Fatalf("expected no second bonus, got %+v", view)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func openBun(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedQuiz(t *testing.T, ctx context.Context, db *bun.DB, name string, quiz domain.Quiz) {
	t.Helper()
	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (name, data) VALUES (?, ?::jsonb) ON CONFLICT (name) DO UPDATE SET data=EXCLUDED.data`, name, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Title: "European Capitals",
		Questions: []domain.Question{
			{Text: "Capital of France?", Answer: "Paris"},
			{Text: "Capital of Italy?", Answer: "Rome"},
			{Text: "Capital of Spain?", Answer: "Madrid"},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
