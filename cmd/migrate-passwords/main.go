// Migration script to hash plaintext personnel passwords before login is enabled
// cmd/migrate-passwords/main.go
package main

import (
	"flag"
	"log"

	"protocol-review-api/config"
	"protocol-review-api/models"
	"protocol-review-api/utils"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report users that would be rehashed without writing")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var users []models.User
	if err := db.Where("delete_at IS NULL").Find(&users).Error; err != nil {
		log.Fatal("Failed to fetch users:", err)
	}

	updated := 0
	for _, user := range users {
		if !utils.NeedsRehash(user.Password) {
			continue
		}
		if *dryRun {
			log.Printf("Would rehash password for user %s", user.Email)
			continue
		}

		hashed, err := utils.HashPassword(user.Password)
		if err != nil {
			log.Printf("Failed to hash password for user %s: %v", user.Email, err)
			continue
		}
		if err := db.Model(&models.User{}).Where("user_id = ?", user.UserID).Update("password", hashed).Error; err != nil {
			log.Printf("Failed to update password for user %s: %v", user.Email, err)
			continue
		}
		updated++
	}

	log.Printf("Password migration completed: %d of %d users rehashed", updated, len(users))
}
