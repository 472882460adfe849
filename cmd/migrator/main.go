package main

import (
	"flag"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/openfirewatch/firewatch/internal/config"
	"github.com/openfirewatch/firewatch/internal/data"
)

func main() {
	configPath := flag.String("config", "", "settings file (env overrides apply)")
	upCmd := flag.Bool("up", false, "Run all up migrations")
	downCmd := flag.Bool("down", false, "Rollback all migrations")
	stepsCmd := flag.Int("steps", 0, "Run +/- steps")
	src := flag.String("source", "file://db/migrations", "migration source")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Migrator] load settings: %v", err)
	}

	db, err := data.Open(settings.DSN())
	if err != nil {
		log.Fatalf("[Migrator] database: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("[Migrator] create driver: %v", err)
	}
	m, err := migrate.NewWithDatabaseInstance(*src, "postgres", driver)
	if err != nil {
		log.Fatalf("[Migrator] initialize: %v", err)
	}

	start := time.Now()
	switch {
	case *upCmd:
		log.Println("[Migrator] running UP migrations")
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("[Migrator] UP failed: %v", err)
		}
	case *downCmd:
		log.Println("[Migrator] running DOWN migrations")
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("[Migrator] DOWN failed: %v", err)
		}
	case *stepsCmd != 0:
		log.Printf("[Migrator] running %d steps", *stepsCmd)
		if err := m.Steps(*stepsCmd); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("[Migrator] steps failed: %v", err)
		}
	default:
		version, dirty, err := m.Version()
		if err != nil {
			log.Println("[Migrator] no version found (empty db?)")
		} else {
			log.Printf("[Migrator] current version: %d, dirty: %v", version, dirty)
		}
	}
	log.Printf("[Migrator] done in %v", time.Since(start))
}
