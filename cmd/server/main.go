package main

import (
	"log"

	"tripstars-api/internal/config"
	"tripstars-api/internal/database"
	"tripstars-api/internal/handlers"
	"tripstars-api/internal/realtime"
	"tripstars-api/internal/routes"
	"tripstars-api/internal/scheduler"
	"tripstars-api/internal/services"
)

func main() {
	cfg := config.Load()

	database.InitDB(cfg.DBPath)
	if err := database.SeedDefaults(database.GetDB()); err != nil {
		log.Fatal("Failed to seed database: ", err)
	}

	if err := handlers.SetUploadDir(cfg.UploadDir); err != nil {
		log.Fatal("Failed to create upload directory: ", err)
	}

	services.SetMailer(services.NewMailer(cfg))

	hub := realtime.NewHub()

	overdueScanner := scheduler.New(hub)
	overdueScanner.Start()
	defer overdueScanner.Stop()

	ginRoutes := routes.SetupRoutes(hub)

	addr := ":" + cfg.Port
	log.Printf("Server starting on %s", addr)
	if err := ginRoutes.Run(addr); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
