// Command migrate applies the GORM schema. The server only auto-migrates
// outside production, so production deploys run this first.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"dreamio/internal/config"
	"dreamio/internal/database"

	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("schema applied")
	case "status":
		printStatus(db)
	default:
		return usage()
	}
	return nil
}

func printStatus(db *gorm.DB) {
	m := db.Migrator()
	for _, model := range database.PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			log.Printf("%T: %v", model, err)
			continue
		}
		state := "missing"
		if m.HasTable(model) {
			state = "present"
		}
		log.Printf("%-14s %s", stmt.Schema.Table, state)
	}
}
