// Schema migration and legacy comment normalization
// cmd/migrate/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"protocol-review-api/config"
	"protocol-review-api/models"
	"protocol-review-api/services"
)

func main() {
	var (
		responsesPath string
		skipSchema    bool
	)
	flag.StringVar(&responsesPath, "legacy-responses", "", "path to a legacy investigator response export (optional)")
	flag.BoolVar(&skipSchema, "skip-schema", false, "do not run AutoMigrate")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()

	if !skipSchema {
		if err := db.WithContext(ctx).AutoMigrate(
			&models.ProtocolApplication{},
			&models.ReviewEvent{},
			&models.InvestigatorResponse{},
			&models.ProtocolStatusHistory{},
		); err != nil {
			log.Fatalf("Schema migration failed: %v", err)
		}
		log.Println("Schema migration completed")
	}

	migrator := services.NewLegacyMigrator(db)

	updated, problems := migrator.BackfillEventTimestamps(ctx)
	for _, p := range problems {
		log.Printf("Warning: %v", p)
	}
	log.Printf("Backfilled %d review event timestamps", updated)

	if responsesPath == "" {
		return
	}

	f, err := os.Open(responsesPath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", responsesPath, err)
	}
	defer f.Close()

	responses, problems := services.ParseLegacyResponses(f)
	for _, p := range problems {
		log.Printf("Warning: %v", p)
	}

	inserted, err := migrator.ImportResponses(ctx, responses)
	if err != nil {
		log.Fatalf("Legacy response import failed: %v", err)
	}
	log.Printf("Imported %d of %d legacy investigator responses", inserted, len(responses))
}
