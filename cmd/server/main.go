package main

import (
	"log"
	"time"

	"studio-reconciliation-backend/internal/config"
	"studio-reconciliation-backend/internal/logger"
	"studio-reconciliation-backend/internal/models"
	"studio-reconciliation-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg := config.Load()

	zlog, err := logger.New(cfg.Logger.Level)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zlog.Sync()

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		zlog.Fatal("database init failed", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.Invoice{},
		&models.Expense{},
		&models.BankTransaction{},
		&models.StatementImport{},
		&models.MatchAuditLog{},
	); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Reviewer"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, cfg, zlog)

	zlog.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}
