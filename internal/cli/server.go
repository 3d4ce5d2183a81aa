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

	"mediwise-quiz-service/internal/app"
	"mediwise-quiz-service/internal/config"
	"mediwise-quiz-service/internal/domain"
	"mediwise-quiz-service/internal/infra/memory"
	pgloader "mediwise-quiz-service/internal/infra/postgres"
	redisinfra "mediwise-quiz-service/internal/infra/redis"
	transport "mediwise-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var bankRepo app.BankRepository
	if redisClient != nil {
		bankRepo = redisinfra.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		bankRepo = memory.NewBankRepository(loader, bankTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}
	service := app.NewSessionService(store, bankRepo)
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
		log.Printf("starting mediwise quiz service on :%s", finalPort)
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

// sampleBanks provides a trimmed slice of the Mediwise question content for
// running without Postgres; production deployments load full banks from the
// banks table.
func sampleBanks() map[string]*domain.Bank {
	return map[string]*domain.Bank{
		"ukmla-cardio": domain.MustBank("ukmla-cardio", []domain.Question{
			{
				ID: "cardio-001",
				Stem: "A 62-year-old man presents with 40 minutes of central crushing chest pain " +
					"radiating to his left arm. He is sweaty and nauseated. ECG shows ST elevation " +
					"in leads II, III and aVF. Which coronary artery is most likely occluded?",
				Options: []domain.Option{
					{Key: "A", Text: "Left anterior descending artery"},
					{Key: "B", Text: "Left circumflex artery"},
					{Key: "C", Text: "Right coronary artery"},
					{Key: "D", Text: "Left main stem"},
					{Key: "E", Text: "Posterior descending artery"},
				},
				CorrectKey: "C",
				Explanation: "ST elevation in the inferior leads (II, III, aVF) indicates an inferior " +
					"MI, most commonly caused by right coronary artery occlusion.",
			},
			{
				ID: "cardio-002",
				Stem: "A 30-year-old woman has sharp retrosternal chest pain that is worse on lying " +
					"flat and relieved by sitting forward. A friction rub is heard on auscultation. " +
					"What is the most likely diagnosis?",
				Options: []domain.Option{
					{Key: "A", Text: "Pulmonary embolism"},
					{Key: "B", Text: "Acute pericarditis"},
					{Key: "C", Text: "Aortic dissection"},
					{Key: "D", Text: "Oesophageal spasm"},
					{Key: "E", Text: "Spontaneous pneumothorax"},
				},
				CorrectKey: "B",
				Explanation: "Positional pleuritic pain with a pericardial friction rub is classic " +
					"for acute pericarditis; widespread saddle-shaped ST elevation would support it.",
			},
			{
				ID: "cardio-003",
				Stem: "A 75-year-old woman on bendroflumethiazide presents with palpitations. Her " +
					"ECG shows an irregularly irregular rhythm with no discernible P waves at a rate " +
					"of 130 bpm. What is the first-line investigation to guide long-term management?",
				Options: []domain.Option{
					{Key: "A", Text: "24-hour ambulatory ECG"},
					{Key: "B", Text: "Transthoracic echocardiogram"},
					{Key: "C", Text: "Exercise tolerance test"},
					{Key: "D", Text: "Coronary angiography"},
					{Key: "E", Text: "Cardiac MRI"},
				},
				CorrectKey: "B",
				Explanation: "New atrial fibrillation warrants a transthoracic echocardiogram to " +
					"assess for structural disease before choosing rate or rhythm control.",
			},
			{
				ID: "cardio-004",
				Stem: "A 58-year-old man with hypertension asks about his blood pressure target. He " +
					"has type 2 diabetes without end-organ damage. According to standard UK guidance, " +
					"what clinic blood pressure should treatment aim for?",
				Options: []domain.Option{
					{Key: "A", Text: "Below 120/70 mmHg"},
					{Key: "B", Text: "Below 130/80 mmHg"},
					{Key: "C", Text: "Below 140/90 mmHg"},
					{Key: "D", Text: "Below 150/90 mmHg"},
					{Key: "E", Text: "Below 160/100 mmHg"},
				},
				CorrectKey:  "C",
				Explanation: "For adults under 80, including those with type 2 diabetes, the clinic target is below 140/90 mmHg.",
			},
		}),
		"ukmla-resp": domain.MustBank("ukmla-resp", []domain.Question{
			{
				ID: "resp-001",
				Stem: "A 24-year-old tall, thin man develops sudden right-sided pleuritic chest pain " +
					"and breathlessness while at rest. Breath sounds are reduced on the right with " +
					"hyper-resonant percussion. What is the most likely diagnosis?",
				Options: []domain.Option{
					{Key: "A", Text: "Primary spontaneous pneumothorax"},
					{Key: "B", Text: "Pulmonary embolism"},
					{Key: "C", Text: "Community-acquired pneumonia"},
					{Key: "D", Text: "Acute asthma"},
					{Key: "E", Text: "Pleural effusion"},
				},
				CorrectKey:  "A",
				Explanation: "Sudden pleuritic pain with reduced breath sounds and hyper-resonance in a tall young man is a primary spontaneous pneumothorax.",
			},
			{
				ID: "resp-002",
				Stem: "A 68-year-old smoker with COPD is reviewed. Despite a SABA as required, he " +
					"remains breathless on exertion. Spirometry shows no asthmatic features. What is " +
					"the most appropriate next step in inhaled therapy?",
				Options: []domain.Option{
					{Key: "A", Text: "Add a long-acting beta-agonist and a long-acting muscarinic antagonist"},
					{Key: "B", Text: "Add an inhaled corticosteroid alone"},
					{Key: "C", Text: "Add a long-acting muscarinic antagonist alone"},
					{Key: "D", Text: "Start oral theophylline"},
					{Key: "E", Text: "Start carbocisteine"},
				},
				CorrectKey:  "A",
				Explanation: "Without asthmatic features, escalation from SABA is combined LABA plus LAMA therapy.",
			},
			{
				ID: "resp-003",
				Stem: "A 45-year-old woman presents with a CURB-65 score of 1 community-acquired " +
					"pneumonia. She has no allergies. What is the most appropriate first-line antibiotic?",
				Options: []domain.Option{
					{Key: "A", Text: "Intravenous co-amoxiclav"},
					{Key: "B", Text: "Oral amoxicillin"},
					{Key: "C", Text: "Oral doxycycline plus rifampicin"},
					{Key: "D", Text: "Intravenous ceftriaxone"},
					{Key: "E", Text: "Oral ciprofloxacin"},
				},
				CorrectKey:  "B",
				Explanation: "Low-severity community-acquired pneumonia is treated with oral amoxicillin first line.",
			},
		}),
	}
}
