package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"club_sales/internal/catalog"
	"club_sales/internal/clients"
	"club_sales/internal/config"
	"club_sales/internal/draft"
	"club_sales/internal/sales"
	"club_sales/internal/session"
)

// InitRoutes registers the sale-composition endpoints on the given Gin
// engine. It initializes the upstream clients, storage, service and handler,
// then binds each HTTP method and path to the appropriate handler function.
func InitRoutes(e *gin.Engine, cfg config.Config, logger *zap.Logger) {
	// CORS para la SPA que consume este servicio.
	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	e.Use(cors.New(corsCfg))

	if cfg.MetricsEnabled {
		logger.Info("registering /metrics endpoint")
		e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Inicialización de la lógica de composición de ventas
	catalogClient := catalog.NewClient(cfg.ProductsBaseURL, logger)
	clientDirectory := clients.NewDirectory(cfg.ClientsBaseURL, logger)
	salesGateway := sales.NewClient(cfg.SalesBaseURL, logger)
	draftStorage := draft.NewLocalStorage()
	draftService := draft.NewService(draftStorage, catalogClient, clientDirectory, salesGateway, logger)
	draftHandler := NewDraftHandler(draftService, logger)

	authed := e.Group("/", session.Middleware(cfg.JWTSecret, logger))

	authed.POST("/drafts", draftHandler.handleOpenDraft)
	authed.GET("/drafts/:id", draftHandler.handleGetDraft)
	authed.DELETE("/drafts/:id", draftHandler.handleCancelDraft)

	authed.GET("/drafts/:id/products", draftHandler.handleSearchProducts)
	authed.POST("/drafts/:id/catalog/refresh", draftHandler.handleRefreshCatalog)

	authed.POST("/drafts/:id/selections", draftHandler.handleSelectProduct)
	authed.POST("/drafts/:id/selections/type", draftHandler.handleChooseSellType)
	authed.POST("/drafts/:id/selections/portions", draftHandler.handleConfirmPortions)
	authed.DELETE("/drafts/:id/selections", draftHandler.handleCancelSelection)

	authed.POST("/drafts/:id/groups", draftHandler.handleCreateGroup)
	authed.PATCH("/drafts/:id/groups/:groupID", draftHandler.handleRenameGroup)
	authed.DELETE("/drafts/:id/groups/:groupID", draftHandler.handleRemoveGroup)
	authed.PUT("/drafts/:id/groups/:groupID/activate", draftHandler.handleActivateGroup)
	authed.PATCH("/drafts/:id/groups/:groupID/items/:itemID", draftHandler.handleUpdateItem)

	authed.POST("/drafts/:id/advance", draftHandler.handleAdvance)
	authed.POST("/drafts/:id/back", draftHandler.handleBack)

	authed.PUT("/drafts/:id/client", draftHandler.handleAttachClient)
	authed.DELETE("/drafts/:id/client", draftHandler.handleDetachClient)

	authed.POST("/drafts/:id/submit", draftHandler.handleSubmit)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}
