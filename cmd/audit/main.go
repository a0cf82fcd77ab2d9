package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"carforum/internal/pkg/audit"
	"carforum/internal/pkg/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "overall audit timeout")
	flag.Parse()

	config.LoadConfig()

	db, err := sqlx.Connect("postgres", config.GlobalConfig.Database.URL())
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := audit.NewAuditor(db).Run(ctx)
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatal(err)
	}
	if !report.Clean() {
		log.Printf("found %d counter drift(s)", len(report.Drifts))
		os.Exit(1)
	}
	log.Println("counters consistent")
}
