package config

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the Postgres connection from environment variables.
// TranslateError is on so duplicate-key violations surface as
// gorm.ErrDuplicatedKey, which the reconciliation store relies on for
// its compare-and-swap writes.
func InitDB() *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "postgres"),
		envOr("DB_NAME", "reconciliation"),
		os.Getenv("DB_PASSWORD"),
		envOr("DB_SSLMODE", "disable"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("cannot connect to database: ", err)
	}
	return db
}

// ServerAddr returns the listen address for the HTTP server.
func ServerAddr() string {
	return ":" + envOr("PORT", "8080")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
