// Mints license keys directly against the database, for fulfilment outside
// the admin API (bulk orders, manual sales).
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/reelacademy/ra-lms/internal/config"
	"github.com/reelacademy/ra-lms/internal/data"
	"github.com/reelacademy/ra-lms/internal/license"
)

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	days := flag.Int("days", 30, "validity in days (7/30/90/180/365)")
	count := flag.Int("count", 1, "number of keys to mint")
	memo := flag.String("memo", "", "buyer label, also the watermark fragment")
	flag.Parse()

	switch *days {
	case 7, 30, 90, 180, 365:
	default:
		log.Fatalf("days must be one of 7, 30, 90, 180, 365")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("db ping: %v", err)
	}

	repo := data.LicenseModel{DB: db}
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(time.Duration(*days) * 24 * time.Hour)

	for i := 0; i < *count; i++ {
		key, err := license.GenerateKey()
		if err != nil {
			log.Fatalf("generate: %v", err)
		}

		l := &data.License{Key: key, ExpiresAt: expiresAt, IsActive: true}
		if *memo != "" {
			l.Memo = memo
		}
		if err := repo.Insert(ctx, l); err != nil {
			log.Fatalf("insert: %v", err)
		}
		fmt.Println(key)
	}
}
