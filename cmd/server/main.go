package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tasador/server/config"
	"tasador/server/internal/api"
	"tasador/server/internal/database"
	"tasador/server/internal/geocoding"
	"tasador/server/internal/processor"
	"tasador/server/internal/queue"
	"tasador/server/internal/report"
	"tasador/server/internal/session"
	"tasador/server/internal/sheets"
	"tasador/server/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	var st store.Store
	var importQueue *queue.ComparableQueue

	if cfg.LocalMode {
		logger.Info("Running in local mode, nothing will be persisted")
		st = store.NewMemoryStore()
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
			logger.WithError(err).Fatal("Failed to create database directory")
		}
		logger.Infof("Using database at: %s", cfg.DatabasePath)

		db, err := database.NewDatabase(cfg.DatabasePath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize database")
		}
		defer db.Close()

		logger.Info("Running database migrations...")
		if err := db.RunMigrations(); err != nil {
			logger.WithError(err).Fatal("Failed to run database migrations")
		}
		st = db

		gormDB, err := database.NewGormDB(cfg.DatabasePath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize batch database")
		}

		importQueue = queue.NewComparableQueue(cfg.BatchProcessing.QueueSize, logger)
		batchProcessor := processor.NewBatchProcessor(gormDB, importQueue, cfg, logger)
		batchProcessor.Start()
		defer batchProcessor.Stop()
	}

	cacheDir := cfg.GeocodeCacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "tasador", "geocode_cache")
	}
	geocoder := geocoding.NewGeocoder(logger, cacheDir)

	sess := session.New(st, importQueue, logger)
	fetcher := sheets.NewFetcher(logger, time.Duration(cfg.SheetFetchTimeout)*time.Second)
	reports := report.NewBuilder(logger, geocoder)

	handler := api.NewHandler(sess, fetcher, reports, logger)

	router := gin.Default()
	router.Use(cors.Default())
	api.SetupRoutes(router, handler)

	logger.Infof("Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
