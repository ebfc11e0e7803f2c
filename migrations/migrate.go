package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"ledger/src/config"
	"ledger/src/database"
	aws_handler "ledger/src/utils/aws"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig("./settings", os.Getenv("ENV"))
	if err != nil {
		log.Fatalf("Error loading config for environment: %v", err)
	}

	var secrets database.SecretReader
	if cfg.Databases.SQL.PasswordSecretID != "" {
		handler, err := aws_handler.NewAWSHandler(cfg.AWS)
		if err != nil {
			log.Fatalf("Failed to create AWS session: %v", err)
		}
		secrets = handler.SecretManager
	}
	dsn, err := database.DSN(ctx, cfg, secrets)
	if err != nil {
		log.Fatalf("Failed to build connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set dialect: %v", err)
	}
	if err := goose.UpContext(ctx, db, "./migrations"); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	log.Println("Database migration completed successfully")
}
