package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/mr-seha/recipe-app-api/internal/database"
	"github.com/mr-seha/recipe-app-api/internal/handlers"
)

func main() {
	email := flag.String("email", "", "email address for the superuser")
	password := flag.String("password", "", "password for the superuser")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("Both -email and -password are required")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	database.InitDB()
	defer database.CloseDB()
	database.CreateTables()

	userID, err := handlers.CreateSuperuser(database.DB, *email, *password)
	if err != nil {
		log.Fatal("Failed to create superuser: ", err)
	}

	log.Printf("Superuser %s created with id %d", *email, userID)
}
