// backend-go/cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salescast/backend-go/internal/api"
	"github.com/salescast/backend-go/internal/cache"
	"github.com/salescast/backend-go/internal/config"
	"github.com/salescast/backend-go/internal/drive"
	"github.com/salescast/backend-go/internal/forecast"
	"github.com/salescast/backend-go/internal/repository"
	"github.com/salescast/backend-go/internal/repository/postgres"
	"github.com/salescast/backend-go/internal/series"
	"github.com/salescast/backend-go/internal/service"
	"github.com/salescast/backend-go/internal/storage"
	"github.com/salescast/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var repo repository.DatasetRepository
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		datasetRepo := postgres.NewDatasetRepository(db)
		if err := datasetRepo.EnsureSchema(context.Background()); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
		repo = datasetRepo
	}

	seriesCache, err := cache.NewSeriesCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Series cache unavailable, running without it")
		seriesCache = cache.NewNoopSeriesCache()
	}

	var archive storage.ObjectStorage
	if cfg.Storage.Enabled {
		client, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Object storage unavailable, falling back to the local archive")
		} else {
			archive = client
		}
	}
	if archive == nil && cfg.App.UploadDir != "" {
		local, err := storage.NewLocalDir(cfg.App.UploadDir)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Local upload archive unavailable, running without one")
		} else {
			archive = local
		}
	}

	var driveService *drive.Service
	if cfg.Drive.Enabled {
		svc, err := drive.NewServiceFromFile(cfg.Drive.CredentialsFile)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Drive ingestion unavailable, running without it")
		} else {
			driveService = svc
		}
	}

	labels := series.LabelNames{
		AllDepartments:  cfg.App.DefaultLabels.AllDepartments,
		AllOrderMethods: cfg.App.DefaultLabels.AllOrderMethods,
		AllProducts:     cfg.App.DefaultLabels.AllProducts,
	}
	datasetService := service.NewDatasetService(labels, repo, archive, seriesCache)
	registry := forecast.NewRegistry(cfg.Forecast)
	forecastService := service.NewForecastService(datasetService, registry, cfg.Forecast.MaxHorizonDays)

	router := api.NewRouter(&api.Services{
		DatasetService:  datasetService,
		ForecastService: forecastService,
		DriveService:    driveService,
		DriveFolderID:   cfg.Drive.FolderID,
		MaxUploadMB:     cfg.App.MaxUploadMB,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
