package main

import (
	"bufio"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imrejaul007/pentouz-pms-sub007/internal/app"
	"github.com/imrejaul007/pentouz-pms-sub007/internal/clock"
	"github.com/imrejaul007/pentouz-pms-sub007/internal/config"
	"github.com/imrejaul007/pentouz-pms-sub007/internal/events"
	"github.com/imrejaul007/pentouz-pms-sub007/internal/storage/postgres"
	transporthttp "github.com/imrejaul007/pentouz-pms-sub007/internal/transport/http"
	"github.com/imrejaul007/pentouz-pms-sub007/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()
	loadEnvFile(logger)
	cfg := config.Load()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var publisher app.EventPublisher = app.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatalf("connect to amqp: %v", err)
		}
		defer amqpPub.Close()
		publisher = amqpPub
	} else {
		logger.Printf("WARN: AMQP_URL not set, lifecycle events disabled")
	}

	invRepo := postgres.NewInventoryRepository(pool)
	resRepo := postgres.NewReservationRepository(pool)
	hotelRepo := postgres.NewHotelRepository(pool)

	bookingOpts := []app.BookingServiceOption{
		app.WithRetryBudget(cfg.RetryAttempts, cfg.RetryBackoff, cfg.RetryBackoffCap),
		app.WithPendingTTL(cfg.PendingTTL),
		app.WithEventPublisher(publisher),
		app.WithLogger(logger),
		app.WithPastArrivals(cfg.AllowPastArrivals),
	}

	bookingSvc := app.NewBookingService(invRepo, resRepo, hotelRepo, clock.NewSystem(), bookingOpts...)
	availSvc := app.NewAvailabilityService(invRepo)
	invSvc := app.NewInventoryService(invRepo, hotelRepo)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := app.NewSweeper(bookingSvc, cfg.SweepInterval, logger)
	go sweeper.Run(sweepCtx)

	handler := transporthttp.NewRouter(transporthttp.RouterDeps{
		Bookings:     bookingSvc,
		Availability: availSvc,
		Inventory:    invSvc,
		Holdings:     bookingSvc,
		DB:           pool,
		APIKeys:      cfg.APIKeys,
		RateLimit:    cfg.RateLimitPerMinute,
		CORSOrigins:  cfg.CORSOrigins,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}

func loadEnvFile(logger *log.Logger) {
	path, err := findEnvFile()
	if err != nil {
		logger.Printf("WARN: failed to locate .env: %v", err)
		return
	}
	if path == "" {
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Printf("WARN: failed to open %s: %v", path, err)
		return
	}
	if err := parseEnvFile(logger, file); err != nil {
		logger.Printf("WARN: failed to load %s: %v", path, err)
	} else {
		logger.Printf("loaded env from %s", path)
	}
	_ = file.Close()
}

func findEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

func parseEnvFile(logger *log.Logger, file *os.File) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		value = trimQuotes(value)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			logger.Printf("WARN: failed to set %s from env file", key)
		}
	}
	return scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') ||
		(value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
