// Command seed fills the database with demo users, events and live streams.
package main

import (
	"flag"
	"log"

	"dreamio/internal/config"
	"dreamio/internal/database"
	"dreamio/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numEvents := flag.Int("events", 40, "Number of events to create")
	numStreams := flag.Int("streams", 15, "Number of live streams to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Build entities without writing to the database")
	fast := flag.Bool("fast", false, "Hash passwords at minimum bcrypt cost")
	preset := flag.String("preset", "", "YAML preset file (overrides the count flags)")
	flag.Parse()

	opts := seed.Options{
		Users:    *numUsers,
		Events:   *numEvents,
		Streams:  *numStreams,
		Clean:    *shouldClean,
		DryRun:   *dryRun,
		FastHash: *fast,
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	var summary *seed.Summary
	if *preset != "" {
		p, err := seed.LoadPreset(*preset)
		if err != nil {
			log.Fatalf("Failed to load preset: %v", err)
		}
		log.Printf("Applying preset %q (ignoring count flags)", p.Name)
		summary, err = s.ApplyPreset(p, opts)
		if err != nil {
			log.Fatalf("Preset seeding failed: %v", err)
		}
	} else {
		summary, err = s.Run(opts)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Printf("Done: %d users, %d events, %d live streams", len(summary.Users), summary.Events, summary.Streams)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
