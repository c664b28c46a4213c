package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr-seha/recipe-app-api/internal/database"
	"github.com/mr-seha/recipe-app-api/internal/handlers"
	"github.com/mr-seha/recipe-app-api/internal/middleware"
	"github.com/mr-seha/recipe-app-api/internal/monitoring"
	"github.com/mr-seha/recipe-app-api/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	if err := utils.EnsureJWTReady(); err != nil {
		log.Fatal("JWT configuration error: ", err)
	}

	database.InitDB()
	defer database.CloseDB()
	database.CreateTables()

	handlers.SetMonitoringService(monitoring.NewService(time.Now()))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(monitoring.RequestMetricsMiddleware())
	router.HandleMethodNotAllowed = true

	router.GET("/health", handlers.HealthCheck)
	router.GET("/api/status", handlers.Status)
	router.Static("/uploads", handlers.UploadsBasePath())

	users := router.Group("/api/users")
	{
		users.POST("", handlers.Register)
		users.POST("/token", handlers.CreateToken)

		me := users.Group("/me", middleware.AuthMiddleware())
		me.GET("", handlers.GetCurrentUser)
		me.PATCH("", handlers.UpdateCurrentUser)
	}

	api := router.Group("/api", middleware.AuthMiddleware())
	{
		api.GET("/recipes", handlers.GetRecipes)
		api.POST("/recipes", handlers.CreateRecipe)
		api.GET("/recipes/:recipe_id", handlers.GetRecipe)
		api.PUT("/recipes/:recipe_id", handlers.ReplaceRecipe)
		api.PATCH("/recipes/:recipe_id", handlers.PatchRecipe)
		api.DELETE("/recipes/:recipe_id", handlers.DeleteRecipe)
		api.POST("/recipes/:recipe_id/upload-image", handlers.UploadRecipeImage)

		api.GET("/tags", handlers.GetTags)
		api.PATCH("/tags/:tag_id", handlers.UpdateTag)
		api.DELETE("/tags/:tag_id", handlers.DeleteTag)

		api.GET("/ingredients", handlers.GetIngredients)
		api.PATCH("/ingredients/:ingredient_id", handlers.UpdateIngredient)
		api.DELETE("/ingredients/:ingredient_id", handlers.DeleteIngredient)
	}

	// Key-gated, outside token auth.
	monitor := router.Group("/api/monitoring")
	{
		monitor.GET("/status", handlers.MonitorStatus)
		monitor.GET("/storage", handlers.MonitorStorage)
		monitor.GET("/connections", handlers.MonitorConnections)
		monitor.GET("/runtime", handlers.MonitorRuntime)
		monitor.GET("/users", handlers.MonitorUsers)
		monitor.GET("/all", handlers.MonitorAll)
		monitor.GET("/snapshot", handlers.MonitorSnapshot)
	}

	log.Println("Recipe API starting on :8080")
	if err := router.Run(":8080"); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
