// Command seed populates a development database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"hongdating/internal/config"
	"hongdating/internal/database"
	"hongdating/internal/middleware"
	"hongdating/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	users := flag.Int("users", defaults.Users, "number of generated users on top of the fixture accounts")
	posts := flag.Int("posts", defaults.Posts, "number of feed posts")
	rooms := flag.Int("rooms", defaults.Rooms, "number of accepted requests with a chat room")
	pending := flag.Int("pending", defaults.PendingRequests, "number of unanswered requests")
	messages := flag.Int("messages", defaults.MessagesPerRoom, "messages per chat room")
	clean := flag.Bool("clean", false, "delete all existing rows first")
	fixturePath := flag.String("fixture", "", "fixture YAML file (defaults to the built-in one)")
	randSeed := flag.Int64("seed", 0, "random seed, 0 for a random one")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}
	middleware.Configure(cfg.Env, cfg.LogLevel)

	fixture, err := seed.LoadFixture(*fixturePath)
	if err != nil {
		log.Fatalf("Failed to load fixture: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	sum, err := seed.NewSeeder(db, fixture, *randSeed).Run(context.Background(), seed.Options{
		Users:           *users,
		Posts:           *posts,
		Rooms:           *rooms,
		PendingRequests: *pending,
		MessagesPerRoom: *messages,
		Clean:           *clean,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d rooms, %d posts", len(sum.Users), sum.Rooms, sum.Posts)
	log.Printf("Resume any account with device_secret=%q", seed.DeviceSecret)
	for _, u := range sum.Users {
		if u.IsAdmin {
			log.Printf("Admin %s: device_id=%s", u.Nickname, u.DeviceID)
		}
	}
}
