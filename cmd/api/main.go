package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/receipt-ledger/internal/analytics"
	"github.com/dvloznov/receipt-ledger/internal/api/handlers"
	"github.com/dvloznov/receipt-ledger/internal/api/middleware"
	"github.com/dvloznov/receipt-ledger/internal/config"
	"github.com/dvloznov/receipt-ledger/internal/extraction"
	"github.com/dvloznov/receipt-ledger/internal/ledger/mongostore"
	"github.com/dvloznov/receipt-ledger/internal/logger"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, client, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}()

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	err = store.EnsureIndexes(ctx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create indexes")
	}
	log.Info().Str("database", cfg.MongoDatabase).Msg("Connected to MongoDB")

	var temp pipeline.TempStore
	switch cfg.TempBackend {
	case config.TempBackendGCS:
		temp = pipeline.NewGCSTempStore(cfg.GCSBucket)
		log.Info().Str("bucket", cfg.GCSBucket).Msg("Using GCS temp storage")
	default:
		temp, err = pipeline.NewLocalTempStore(cfg.UploadDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create upload directory")
		}
		log.Info().Str("dir", cfg.UploadDir).Msg("Using local temp storage")
	}

	extractor := extraction.NewGeminiExtractor(cfg.GeminiModel)
	resolver := pipeline.NewCategoryResolver(store.Categories())
	receiptPipeline := pipeline.New(temp, extractor, extractor, resolver, store, log)
	engine := analytics.NewEngine(store)

	receiptsHandler := handlers.NewReceiptsHandler(receiptPipeline, cfg.MaxUploadBytes, cfg.Production(), log)
	transactionsHandler := handlers.NewTransactionsHandler(store, store.Categories(), cfg.Production(), log)
	categoriesHandler := handlers.NewCategoriesHandler(store.Categories(), cfg.Production(), log)
	reportsHandler := handlers.NewReportsHandler(engine, cfg.Production(), log)

	api := http.NewServeMux()

	api.HandleFunc("/api/ocr/receipt", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			receiptsHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	api.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			transactionsHandler.Create(w, r)
		case http.MethodGet:
			transactionsHandler.List(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	api.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			transactionsHandler.Update(w, r, id)
		case http.MethodDelete:
			transactionsHandler.Delete(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	api.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			categoriesHandler.List(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	reports := map[string]http.HandlerFunc{
		"/api/reports/expenses-by-category": reportsHandler.ExpensesByCategory,
		"/api/reports/monthly-spending":     reportsHandler.MonthlySpending,
		"/api/reports/income-vs-expense":    reportsHandler.IncomeVsExpense,
		"/api/reports/summary":              reportsHandler.Summary,
	}
	for path, handlerFunc := range reports {
		fn := handlerFunc
		api.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				fn(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})
	}

	root := http.NewServeMux()
	root.Handle("/api/", middleware.Auth([]byte(cfg.JWTSecret))(api))
	root.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(root),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
