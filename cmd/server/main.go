package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kabarecoop/backend/internal/database"
	"github.com/kabarecoop/backend/internal/handlers"
	mW "github.com/kabarecoop/backend/internal/middleware"
	"github.com/kabarecoop/backend/internal/models"
	"github.com/kabarecoop/backend/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		log.WithError(err).Info("Config file not found, using defaults")
	}

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")

	viper.SetDefault("jwt.secret_key", "change-me-in-production")
	viper.SetDefault("jwt.expiry_hours", 24)

	db, err := database.InitDB(log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	redisClient := database.InitRedis(log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	clock := services.SystemClock
	ids := services.NewIDSource(clock)
	events := services.NewEventQueue(redisClient, log)

	ledger := services.NewLedgerService(db)
	txlog := services.NewTransactionLog(db)
	coord := services.NewCoordinator(db, ledger, txlog, clock, ids, log, events)
	contract := services.NewCreditContractEngine(ledger, txlog, clock, ids, services.DefaultAnnualRate, log)
	workflow := services.NewCreditWorkflowService(db, coord, ledger, contract, clock, ids, log)
	repayments := services.NewRepaymentService(db, coord, ledger, txlog, clock, ids, services.PrincipalFirst{}, log, events)
	auth := services.NewAuthService(
		db, coord, ledger, clock, ids,
		viper.GetString("jwt.secret_key"),
		time.Duration(viper.GetInt("jwt.expiry_hours"))*time.Hour,
		log,
	)
	stats := services.NewStatsService(db, redisClient, 5*time.Minute, log)
	monitor := services.NewCreditMonitor(db, clock, events, log)

	authHandler := handlers.NewAuthHandler(auth)
	accountHandler := handlers.NewAccountHandler(ledger, txlog)
	transactionHandler := handlers.NewTransactionHandler(coord, repayments)
	creditHandler := handlers.NewCreditHandler(workflow)
	adminHandler := handlers.NewAdminHandler(stats)

	// Nightly sweep flags overdue credits and queues payment reminders.
	scheduler := cron.New()
	scheduler.AddFunc("0 2 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		count, err := monitor.Sweep(ctx)
		if err != nil {
			log.WithError(err).Error("Overdue credit sweep failed")
			return
		}
		log.WithField("overdue", count).Info("Overdue credit sweep completed")
	})
	scheduler.Start()
	defer scheduler.Stop()

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/accounts", accountHandler.ListAccounts)
			r.Get("/accounts/balance-enquiry", accountHandler.BalanceEnquiry)
			r.Get("/transactions", accountHandler.ListTransactions)

			r.Post("/transactions/withdraw", transactionHandler.Withdraw)
			r.Post("/transactions/transfer", transactionHandler.Transfer)

			r.Post("/credits/requests", creditHandler.Submit)
			r.Get("/credits/requests", creditHandler.ListMine)

			// Cash desk
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleCashier, models.RoleAdmin))
				r.Post("/cashdesk/deposit", transactionHandler.Deposit)
				r.Post("/cashdesk/withdrawal", transactionHandler.Withdrawal)
				r.Post("/cashdesk/repayment", transactionHandler.Repayment)
			})

			// Credit commission
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleCreditCommission, models.RoleAdmin))
				r.Get("/credits/commission/queue", creditHandler.CommissionQueue)
			})

			// Credit agent
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleCreditAgent, models.RoleAdmin))
				r.Get("/credits/agent/queue", creditHandler.AgentQueue)
			})

			// Decisions carry the role inside the token; the workflow's
			// transition table decides legality per (status, role, decision).
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleCreditCommission, models.RoleCreditAgent, models.RoleAdmin))
				r.Post("/credits/requests/{id}/decision", creditHandler.Decide)
			})

			// Admin
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireRole(models.RoleAdmin))
				r.Get("/admin/stats", adminHandler.Stats)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server stopped")
}
