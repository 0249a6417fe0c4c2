package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "bank-reconciliation-backend/internal/handlers"
	"bank-reconciliation-backend/internal/repository"
	service "bank-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB) {
	candidateRepo := repository.NewGormCandidateRepository(db)
	transactionRepo := repository.NewGormBankTransactionRepository(db)
	ruleRepo := repository.NewGormRuleRepository(db)
	store := repository.NewGormReconciliationStore(db)

	reconService := service.NewReconciliationService(
		candidateRepo,
		transactionRepo,
		ruleRepo,
		store,
	)

	RegisterRoutesWithService(r, reconService)
}

// RegisterRoutesWithService wires the HTTP surface over an already built
// service; tests use it with memory-backed repositories.
func RegisterRoutesWithService(r *gin.Engine, reconService *service.ReconciliationService) {
	reconHandler := handler.NewReconciliationHandler(reconService)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	recon := api.Group("/reconciliations")
	recon.POST("/auto-match", reconHandler.AutoMatch)
	recon.GET("", reconHandler.List)
	recon.GET("/search", reconHandler.SearchCandidates)
	recon.POST("/manual", reconHandler.CreateManualMatch)
	recon.POST("/:id/confirm", reconHandler.Confirm)
	recon.POST("/:id/reject", reconHandler.Reject)
}
