package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/kv"
	"github.com/mind-engage/mindengage-quiz/internal/progress"
	"github.com/mind-engage/mindengage-quiz/internal/records"
	"github.com/mind-engage/mindengage-quiz/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.FromEnv()

	// --- Question bank ---
	qb, err := bank.Load(cfg.BankPath)
	if err != nil {
		log.Fatalf("bank load failed: %v", err)
	}

	// --- Store ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store open failed: %v", err)
	}
	defer closer.Close()

	repo := records.New(store, cfg.KeyPrefix)
	ledger := progress.NewLedger(repo)
	ledger.Load(ctx)
	mgr := session.NewManager(qb, ledger, repo, session.WithSize(cfg.SessionSize))
	if s := mgr.Restore(ctx); s != nil {
		log.Printf("restored session for %s (%d questions, submitted=%t)", s.QuizID, len(s.QuestionIndices), s.Submitted)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	api.Mount(r, api.NewCore(mgr, qb, repo))

	log.Printf("listening on %s (store=%s, quizzes=%d)", cfg.HTTPAddr, cfg.StoreDriver, len(qb.QuizIDs()))
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore picks the record backend named by STORE_DRIVER.
func openStore(ctx context.Context, cfg config.Config) (kv.Store, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Printf("store: memory only, progress is lost on exit")
		return kv.NewMemory(), nopCloser{}, nil
	case config.StoreFS:
		s, err := kv.NewFSStore(cfg.StorePath)
		return s, nopCloser{}, err
	case config.StoreRedis:
		s, err := kv.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		drv, err := db.ParseDriver(string(cfg.StoreDriver))
		if err != nil {
			return nil, nil, err
		}
		dbh, err := db.Open(ctx, drv, cfg.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewSQLStore(dbh), dbh, nil
	}
}
