package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"rag-workspace-be/pkg/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDB(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Running migration...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("Error: Migration failed:", err)
	}
	log.Println("Migration complete.")
}
