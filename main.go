package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"club_sales/api"
	"club_sales/internal/config"
)

func main() {
	cfg := config.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	r := gin.Default()
	api.InitRoutes(r, cfg, logger)

	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		panic(fmt.Errorf("error trying to start server: %v", err))
	}
}
