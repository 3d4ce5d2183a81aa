package integration

import (
	"context"
	"database/sql"
	"encoding/json"
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

	"mediwise-quiz-service/internal/app"
	"mediwise-quiz-service/internal/domain"
	pgloader "mediwise-quiz-service/internal/infra/postgres"
	pgmigrations "mediwise-quiz-service/internal/infra/postgres/migrations"
	infraredis "mediwise-quiz-service/internal/infra/redis"
	"mediwise-quiz-service/internal/session"
)

func TestQuizAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedBank(t, ctx, pgURL, sampleBankDocument())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewBankLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	bankRepo := infraredis.NewBankRepository(redisClient, loader, 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	service := app.NewSessionService(sessionStore, bankRepo)

	id, err := service.Start(ctx, "ukmla-cardio", session.ModeSequential)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Answer q1 correctly, q2 incorrectly.
	if err := service.Choose(id, "C"); err != nil {
		t.Fatalf("choose q1: %v", err)
	}
	reveal, err := service.Submit(id)
	if err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	if !reveal.Correct {
		t.Fatalf("expected q1 correct, got %+v", reveal)
	}

	if _, err := service.Next(id); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := service.Choose(id, "A"); err != nil {
		t.Fatalf("choose q2: %v", err)
	}
	reveal, err = service.Submit(id)
	if err != nil {
		t.Fatalf("submit q2: %v", err)
	}
	if reveal.Correct || !reveal.Finished {
		t.Fatalf("expected q2 incorrect and session finished, got %+v", reveal)
	}

	summary, err := service.Results(id)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if summary.CorrectCount != 1 || summary.Total != 2 || len(summary.Incorrect) != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Incorrect[0].QuestionID != "cardio-002" || summary.Incorrect[0].CorrectKey != "B" {
		t.Fatalf("unexpected incorrect entry %+v", summary.Incorrect[0])
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

type bankDocument struct {
	ID        string            `json:"id"`
	Questions []domain.Question `json:"questions"`
}

func seedBank(t *testing.T, ctx context.Context, dsn string, doc bankDocument) {
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

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal bank: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO banks (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, doc.ID, string(data)); err != nil {
		t.Fatalf("insert bank: %v", err)
	}
}

func sampleBankDocument() bankDocument {
	return bankDocument{
		ID: "ukmla-cardio",
		Questions: []domain.Question{
			{
				ID:   "cardio-001",
				Stem: "A 62-year-old man has ST elevation in leads II, III and aVF. Which artery is most likely occluded?",
				Options: []domain.Option{
					{Key: "A", Text: "Left anterior descending artery"},
					{Key: "B", Text: "Left circumflex artery"},
					{Key: "C", Text: "Right coronary artery"},
				},
				CorrectKey:  "C",
				Explanation: "Inferior lead ST elevation points to the right coronary artery.",
			},
			{
				ID:   "cardio-002",
				Stem: "A 30-year-old woman has positional pleuritic chest pain with a friction rub.",
				Options: []domain.Option{
					{Key: "A", Text: "Pulmonary embolism"},
					{Key: "B", Text: "Acute pericarditis"},
					{Key: "C", Text: "Aortic dissection"},
				},
				CorrectKey:  "B",
				Explanation: "Positional pain and a rub are classic for pericarditis.",
			},
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
