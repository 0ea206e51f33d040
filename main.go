// main.go
package main

import (
	"log"

	"movie-booking/cmd"
	"movie-booking/internal/data/repository"
	"movie-booking/internal/wire"
	"movie-booking/pkg/database"
	"movie-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Optional redis connection for multi-instance real-time fan-out
	var rdb *redis.Client
	if config.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		defer rdb.Close()
		logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, config, rdb, logger)
	defer app.Broker.Close()

	// Background expiry of stale seat holds
	app.Sweeper.Start()
	defer app.Sweeper.Stop()

	// Start server (blocks until shutdown signal)
	cmd.APIServer(app.Router, config.App.Port, logger)
}
