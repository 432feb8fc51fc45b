package api

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"StaySentinel/internal/api/handlers"
	"StaySentinel/internal/config"
	"StaySentinel/internal/metrics"
	"StaySentinel/internal/recorder"
)

func SetupRouter(cfg *config.Config, runner handlers.Runner, rec recorder.Recorder) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), requestMetrics())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	runHandler := handlers.NewRunHandler(runner, cfg.OwnerID, cfg.LogLevel)
	snapshotHandler := handlers.NewSnapshotHandler(cfg.Publisher.SnapshotPath, rec)

	// Paths the dashboard frontend already calls.
	router.POST("/run-scrape-hotels", runHandler.RunScrape)
	router.GET("/hoteles-tijuana-json", snapshotHandler.GetSnapshot)

	api := router.Group("/api")
	{
		api.GET("/runs", snapshotHandler.GetRuns)
		api.GET("/status", runHandler.Status)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
