package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"everwatt-battery-optimizer/internal/api/handlers"
	"everwatt-battery-optimizer/internal/api/middleware"
	"everwatt-battery-optimizer/internal/catalog"
)

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	catalogPath := os.Getenv("CATALOG_FILE")
	if catalogPath == "" {
		catalogPath = "examples/catalog.csv"
	}
	skus, err := catalog.LoadCSV(catalogPath)
	if err != nil {
		log.Fatalf("loading catalog %s: %v", catalogPath, err)
	}
	log.Printf("loaded %d SKUs from %s", len(skus), catalogPath)

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	catalogHandler := handlers.NewCatalogHandler(skus)
	scenariosHandler := handlers.NewScenariosHandler()
	runHandler := handlers.NewRunHandler(skus)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/catalog", catalogHandler.ListCatalog)
		api.GET("/scenarios", scenariosHandler.ListScenarios)
		api.POST("/run", runHandler.Run)
	}

	addr := fmt.Sprintf(":%s", port)
	log.Printf("starting API server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
