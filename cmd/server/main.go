package main

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mhoangvslev/recordara-planner/pkg/auth"
	"github.com/mhoangvslev/recordara-planner/pkg/config"
	"github.com/mhoangvslev/recordara-planner/pkg/database"
	"github.com/mhoangvslev/recordara-planner/pkg/handlers"
	"github.com/mhoangvslev/recordara-planner/pkg/planner"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.Load(os.Getenv("PLANNER_CONFIG"))
	if err != nil {
		logger.Fatal("could not load configuration", zap.Error(err))
	}

	db, err := database.InitDB()
	if err != nil {
		logger.Fatal("could not open database", zap.Error(err))
	}
	if err := auth.EnsureAdminExists(db, logger); err != nil {
		logger.Fatal("could not ensure admin user", zap.Error(err))
	}

	h := &handlers.Handler{
		DB:      db,
		Planner: planner.New(nil, cfg, logger),
		Logger:  logger,
	}

	r := gin.Default()

	// Routes
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Recordara Planner API",
			"version": "1.0.0",
		})
	})

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	// Planner Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/plan", h.PlanJSON)
		api.POST("/plan/csv", h.PlanCSV)
		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)
		api.GET("/runs", h.ListRuns)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logger.Info("server starting", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("could not run server", zap.Error(err))
	}
}
