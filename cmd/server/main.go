package main

import (
	"log"
	"net/http"
	"os"

	"github.com/EastAgile/airbyte/internal/api"
	"github.com/EastAgile/airbyte/internal/middleware"
	"github.com/EastAgile/airbyte/internal/repository"
	"github.com/EastAgile/airbyte/internal/store"
)

func main() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	var repo repository.AttemptRepository
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		pgRepo, err := repository.NewPostgresAttemptRepository(dsn)
		if err != nil {
			log.Fatal(err)
		}
		repo = pgRepo

		defer func() {
			if err := pgRepo.Close(); err != nil {
				log.Printf("failed to close Postgres repository: %v", err)
			}
		}()
	}

	s, err := store.NewStore(redisAddr, repo)
	if err != nil {
		log.Fatal(err)
	}

	defer func() {
		if err := s.Close(); err != nil {
			log.Printf("failed to close store: %v", err)
		}
	}()

	apiHandler := api.NewAPI(s, repo)
	handler := middleware.MetricsMiddleware(apiHandler)

	go startMetricsCollector(s)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	log.Printf("Connected to Redis at %s", redisAddr)

	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal(err)
	}
}
