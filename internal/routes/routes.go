package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"studio-reconciliation-backend/internal/config"
	handler "studio-reconciliation-backend/internal/handlers"
	"studio-reconciliation-backend/internal/repository"
	service "studio-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, log *zap.Logger) {
	transactionRepo := repository.NewBankTransactionRepository(db)
	obligationRepo := repository.NewObligationRepository(db)
	importRepo := repository.NewStatementImportRepository(db)
	store := service.NewGormStore(db)

	reconService := service.NewService(
		transactionRepo,
		obligationRepo,
		store,
		cfg.Matching,
		log,
	)

	reconHandler := handler.NewReconciliationHandler(
		reconService,
		transactionRepo,
		obligationRepo,
		importRepo,
		log,
	)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	recon := api.Group("/reconciliation")
	recon.POST("/run", reconHandler.RunMatching)
	recon.POST("/batch-approve", reconHandler.BatchApproveMatches)

	tx := api.Group("/transactions")
	tx.GET("", reconHandler.ListTransactions)
	tx.GET("/:id", reconHandler.GetTransaction)
	tx.POST("/ingest", reconHandler.IngestTransactions)
	tx.POST("/:id/approve", reconHandler.ApproveMatch)
	tx.POST("/:id/reject", reconHandler.RejectMatch)
	tx.POST("/:id/ignore", reconHandler.IgnoreTransaction)

	api.GET("/imports/:id", reconHandler.GetImport)
	api.GET("/obligations/open", reconHandler.ListOpenObligations)
	api.GET("/obligations/invoices", reconHandler.SearchOpenInvoices)
}
