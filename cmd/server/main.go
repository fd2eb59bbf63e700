package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"sameday-dispatch-service/internal/adapters/cache"
	"sameday-dispatch-service/internal/adapters/events"
	"sameday-dispatch-service/internal/adapters/geo"
	"sameday-dispatch-service/internal/adapters/ordersource"
	"sameday-dispatch-service/internal/adapters/repositories"
	"sameday-dispatch-service/internal/api"
	"sameday-dispatch-service/internal/config"
	"sameday-dispatch-service/internal/platform/db"
	"sameday-dispatch-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, ORS, OMS) behind ports
// and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}
	orsKey := os.Getenv("ORS_API_KEY")
	if strings.TrimSpace(orsKey) == "" {
		log.Fatal("ORS_API_KEY is required")
	}
	omsBaseURL := os.Getenv("OMS_BASE_URL")
	if strings.TrimSpace(omsBaseURL) == "" {
		log.Fatal("OMS_BASE_URL is required")
	}
	omsKey := os.Getenv("OMS_API_KEY")

	redisAddr := config.Get("REDIS_ADDR", "localhost:6379")
	depotAddress := config.Get("DEPOT_ADDRESS", "")
	port := config.Get("PORT", "8080")

	conn, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	if err := initSchema(conn, depotAddress); err != nil {
		log.Fatal(err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	// ORS adapters share a persistent geocode cache to avoid repeated
	// lookups of addresses that recur across import batches.
	geocoder, err := geo.NewORSGeocoder(orsKey, cache.NewSQLGeocodeCache(conn))
	if err != nil {
		log.Fatal(err)
	}
	optimizer, err := geo.NewORSRouteService(orsKey)
	if err != nil {
		log.Fatal(err)
	}
	orders, err := ordersource.NewOMSClient(omsBaseURL, omsKey, rdb)
	if err != nil {
		log.Fatal(err)
	}

	stops := repositories.NewPostgresStopRepository(conn)
	routes := repositories.NewPostgresRouteRepository(conn)
	tracking := repositories.NewPostgresTrackingRepository(conn)
	settings := repositories.NewPostgresSettingsRepository(conn)

	hub := events.NewHub()
	go hub.Run()

	router := api.NewRouter(api.Deps{
		Stops:     services.NewStopService(stops, routes, geocoder, hub),
		Optimize:  services.NewOptimizeService(stops, routes, settings, geocoder, optimizer),
		Lifecycle: services.NewLifecycleService(routes, hub),
		Importer:  services.NewImportService(orders, stops, routes, geocoder),
		Tracking:  services.NewTrackingService(tracking, routes, stops, hub),
		Settings:  settings,
		Hub:       hub,
	})

	// WriteTimeout stays generous for cold-cache optimization runs that
	// wait on external routing calls; websocket upgrades bypass it.
	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func initSchema(conn *sql.DB, depotAddress string) error {
	if err := repositories.InitSchema(conn); err != nil {
		return err
	}
	return repositories.SeedDefaultSettings(conn, depotAddress)
}
