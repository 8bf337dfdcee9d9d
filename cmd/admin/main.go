// Command admin manages account roles from the command line. Production
// deployments disable Admin self-registration, so the first admin is
// promoted here.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"dreamio/internal/config"
	"dreamio/internal/database"
	"dreamio/internal/models"
	"dreamio/internal/repository"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin set-role <user_id> <Admin|Designer|User>")
	fmt.Println("  go run ./cmd/admin promote <user_id>")
	fmt.Println("  go run ./cmd/admin list-admins")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	switch os.Args[1] {
	case "set-role":
		if len(os.Args) < 4 {
			usage()
		}
		setRole(ctx, users, os.Args[2], os.Args[3])
	case "promote":
		if len(os.Args) < 3 {
			usage()
		}
		setRole(ctx, users, os.Args[2], string(models.RoleAdmin))
	case "list-admins":
		listAdmins(ctx, users)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func setRole(ctx context.Context, users repository.UserRepository, rawID, rawRole string) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		log.Fatalf("Invalid user id %q", rawID)
	}
	role, ok := models.ParseRole(rawRole)
	if !ok || rawRole == "" {
		log.Fatalf("Unknown role %q", rawRole)
	}

	user, err := users.GetByID(ctx, uint(id))
	if err != nil {
		log.Fatalf("Lookup failed: %v", err)
	}
	if user.Role == role {
		fmt.Printf("User %s (ID: %d) already has role %s\n", user.Email, user.ID, role)
		return
	}

	user.Role = role
	if err := users.Update(ctx, user); err != nil {
		log.Fatalf("Failed to update role: %v", err)
	}
	fmt.Printf("Set role of %s (ID: %d) to %s\n", user.Email, user.ID, role)
}

func listAdmins(ctx context.Context, users repository.UserRepository) {
	all, err := users.List(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch users: %v", err)
	}

	found := 0
	for _, u := range all {
		if u.Role != models.RoleAdmin {
			continue
		}
		found++
		fmt.Printf("  %d\t%s\t%s\n", u.ID, u.Email, u.Name)
	}
	if found == 0 {
		fmt.Println("No admins found")
	}
}
