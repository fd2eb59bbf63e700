package main

import (
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"sameday-dispatch-service/internal/adapters/repositories"
	"sameday-dispatch-service/internal/config"
	"sameday-dispatch-service/internal/platform/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	depotAddress := config.Get("DEPOT_ADDRESS", "")
	log.Println("Seeding default settings...")
	if err := repositories.SeedDefaultSettings(conn, depotAddress); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Settings seeded.")
}
