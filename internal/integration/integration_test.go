package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"hu-quiz-engine/internal/domain"
	"hu-quiz-engine/internal/engine"
	"hu-quiz-engine/internal/infra/postgres"
	pgmigrations "hu-quiz-engine/internal/infra/postgres/migrations"
	rediscache "hu-quiz-engine/internal/infra/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/jackc/pgx/v4/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestChapterSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	catalog := rediscache.NewCatalogCache(redisClient, store, 5*time.Minute)
	eng := engine.New(catalog, store)

	if err := eng.PublishChapter(ctx, "math", "algebra", sampleQuestions()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := eng.RegisterUser(ctx, domain.User{ID: "u1", DisplayName: "Alice"}); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	if err := eng.RegisterUser(ctx, domain.User{ID: "u2", DisplayName: "Bob"}); err != nil {
		t.Fatalf("register bob: %v", err)
	}

	chapterID := domain.ChapterID("math", "algebra")

	action, err := eng.StartOrResume(ctx, "u2", chapterID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if action.Kind != domain.RenderShowQuestion || action.QuestionIndex != 0 {
		t.Fatalf("expected first question, got %+v", action)
	}

	// Bob answers both correctly, one duplicate press swallowed along the way.
	outcome, err := eng.SubmitAnswer(ctx, "u2", chapterID, 0, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !outcome.Correct {
		t.Fatalf("expected correct answer, got %+v", outcome)
	}
	if _, err := eng.SubmitAnswer(ctx, "u2", chapterID, 0, 1); err != domain.ErrStaleAnswer {
		t.Fatalf("expected stale answer on duplicate, got %v", err)
	}
	outcome, err = eng.SubmitAnswer(ctx, "u2", chapterID, 1, 0)
	if err != nil {
		t.Fatalf("submit final: %v", err)
	}
	if outcome.Next.Kind != domain.RenderShowCompletion || outcome.Next.Score != 2 {
		t.Fatalf("expected completion at 2/2, got %+v", outcome.Next)
	}

	// Alice scores one point.
	if _, err := eng.StartOrResume(ctx, "u1", chapterID); err != nil {
		t.Fatalf("start alice: %v", err)
	}
	if _, err := eng.SubmitAnswer(ctx, "u1", chapterID, 0, 1); err != nil {
		t.Fatalf("submit alice: %v", err)
	}

	entries, err := eng.Leaderboard(ctx, time.Time{}, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != "u2" || entries[0].TotalScore != 2 || entries[0].Rank != 1 {
		t.Fatalf("expected bob leading, got %+v", entries)
	}
	if entries[1].UserID != "u1" || entries[1].DisplayName != "Alice" || entries[1].Rank != 2 {
		t.Fatalf("expected alice second with display name, got %+v", entries)
	}

	// Completed chapter resumes to the retake offer; retake resets to zero.
	action, err = eng.StartOrResume(ctx, "u2", chapterID)
	if err != nil {
		t.Fatalf("resume completed: %v", err)
	}
	if action.Kind != domain.RenderOfferRetake {
		t.Fatalf("expected retake offer, got %+v", action)
	}
	action, err = eng.Retake(ctx, "u2", chapterID)
	if err != nil {
		t.Fatalf("retake: %v", err)
	}
	if action.Kind != domain.RenderShowQuestion || action.QuestionIndex != 0 || action.Score != 0 {
		t.Fatalf("expected fresh first question, got %+v", action)
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

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectIndex: 1, Explanation: "Basic addition."},
		{Text: "What is 10 / 2?", Options: []string{"5", "2"}, CorrectIndex: 0},
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
