// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/salescast/backend-go/internal/api/handlers"
	"github.com/salescast/backend-go/internal/api/middleware"
	"github.com/salescast/backend-go/internal/drive"
	"github.com/salescast/backend-go/internal/service"
)

type Services struct {
	DatasetService  *service.DatasetService
	ForecastService *service.ForecastService
	DriveService    *drive.Service
	DriveFolderID   string
	MaxUploadMB     int
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.DatasetService != nil {
		datasetHandler := handlers.NewDatasetHandler(services.DatasetService, services.DriveService, services.MaxUploadMB)
		datasetGroup := apiGroup.Group("/datasets")
		{
			datasetGroup.POST("", datasetHandler.Upload)
			datasetGroup.GET("", datasetHandler.List)
			datasetGroup.GET("/:id", datasetHandler.Get)
			datasetGroup.DELETE("/:id", datasetHandler.Delete)
			datasetGroup.GET("/:id/categories", datasetHandler.Categories)
			datasetGroup.GET("/:id/series", datasetHandler.Series)
		}

		driveGroup := apiGroup.Group("/drive")
		{
			driveGroup.GET("/files", datasetHandler.ListDriveFiles(services.DriveFolderID))
			driveGroup.POST("/files/:fileID", datasetHandler.IngestFromDrive)
		}

		if services.ForecastService != nil {
			forecastHandler := handlers.NewForecastHandler(services.ForecastService)
			forecastGroup := apiGroup.Group("/forecast")
			{
				forecastGroup.GET("/backends", forecastHandler.Backends)
				forecastGroup.POST("", forecastHandler.Run)
				forecastGroup.POST("/export", forecastHandler.Export)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
