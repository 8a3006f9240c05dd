// Command migrator applies the license_keys schema migrations. It reads the
// same config file as the server so connection settings live in one place.
package main

import (
	"database/sql"
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/reelacademy/ra-lms/internal/config"
)

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	up := flag.Bool("up", false, "apply all pending migrations")
	down := flag.Bool("down", false, "roll back all migrations")
	steps := flag.Int("steps", 0, "apply +/- n migration steps")
	source := flag.String("source", "file://db/migrations", "migration source URL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("migrate driver: %v", err)
	}
	m, err := migrate.NewWithDatabaseInstance(*source, "postgres", driver)
	if err != nil {
		log.Fatalf("migrate init: %v", err)
	}

	switch {
	case *up:
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("migrate up: %v", err)
		}
		log.Println("migrations applied")
	case *down:
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("migrate down: %v", err)
		}
		log.Println("migrations rolled back")
	case *steps != 0:
		if err := m.Steps(*steps); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("migrate steps: %v", err)
		}
		log.Printf("applied %d steps", *steps)
	default:
		version, dirty, err := m.Version()
		if err != nil {
			log.Println("no migrations applied yet")
			return
		}
		log.Printf("version %d, dirty=%v", version, dirty)
	}
}
