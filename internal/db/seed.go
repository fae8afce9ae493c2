package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
)

var (
	demoMaleNames   = []string{"Ivan", "Oleg", "Pavel", "Artem", "Denis", "Maxim", "Roman", "Egor", "Ilya", "Timur"}
	demoFemaleNames = []string{"Anna", "Olga", "Maria", "Daria", "Elena", "Polina", "Sofia", "Alina", "Vera", "Irina"}
	demoCities      = []string{"Moscow", "Saint Petersburg", "Novosibirsk"}
)

// DemoUserCount is the number of profiles SeedDemoData creates. Demo ids are
// 1..DemoUserCount, far below real Telegram ids.
const DemoUserCount = 20

// SeedDemoData resets the database and populates it with idle demo profiles.
//
// Behavior:
//  1. Clears existing data in `pairings`, `filters` and `users`.
//  2. Creates 20 complete profiles (10 male, 10 female) across the preset cities.
//  3. Gives each a filter: half accept anyone, the rest prefer the other
//     gender in their own city with a random age window.
func SeedDemoData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"pairings", "filters", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	return db.Transaction(func(tx *gorm.DB) error {
		for i := 1; i <= DemoUserCount; i++ {
			gender, other, names := "male", "female", demoMaleNames
			if i > DemoUserCount/2 {
				gender, other, names = "female", "male", demoFemaleNames
			}
			city := demoCities[r.Intn(len(demoCities))]

			user := User{
				ID:     int64(i),
				Name:   names[(i-1)%len(names)],
				Age:    18 + r.Intn(30),
				Gender: gender,
				City:   city,
				Status: "idle",
				Filter: Filter{
					UserID:          int64(i),
					PreferredGender: "any",
					MinAge:          18,
					MaxAge:          35,
					City:            "any",
				},
			}
			if i%2 == 0 {
				minAge := 18 + r.Intn(10)
				user.Filter.PreferredGender = other
				user.Filter.MinAge = minAge
				user.Filter.MaxAge = minAge + 5 + r.Intn(20)
				user.Filter.City = city
			}

			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to seed user: %w", err)
			}
		}
		log.Printf("Seeded %d users.", DemoUserCount)
		return nil
	})
}
