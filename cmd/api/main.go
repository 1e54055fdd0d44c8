package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"battery-eval/internal/api/handlers"
	"battery-eval/internal/api/middleware"
	"battery-eval/internal/config"
	"battery-eval/internal/data"
	"battery-eval/internal/logging"
	"battery-eval/internal/store"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.Setup(cfg.Log)

	var st *store.SubmissionStore
	if cfg.Store.Path != "" {
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			log.WithError(err).Fatal("open submission store")
		}
		defer st.Close()
		log.WithField("path", cfg.Store.Path).Info("submission store opened")
	}

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler())

	cache := data.NewDatasetCache()
	evaluateHandler := handlers.NewEvaluateHandler(cfg, cache, st, log)
	submissionsHandler := handlers.NewSubmissionsHandler(st, log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/evaluate", evaluateHandler.Evaluate)
		api.GET("/policies", handlers.ListPolicies)
		api.GET("/submissions/:team", submissionsHandler.History)
		api.GET("/submissions/:team/latest", submissionsHandler.Latest)
	}
	router.GET("/ws/evaluate", evaluateHandler.StreamEvaluate)

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port
	log.WithField("addr", addr).Info("starting API server")
	if err := router.Run(addr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
