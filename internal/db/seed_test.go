package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(database))
	return database
}

func TestSeedDemoData(t *testing.T) {
	database := setupTestDB(t)

	// stale rows are cleared
	require.NoError(t, database.Create(&Pairing{UserID: 500, CompanionID: 501, PairingID: "p"}).Error)

	require.NoError(t, SeedDemoData(database))
	require.NoError(t, SeedDemoData(database), "seeding twice starts fresh")

	var users []User
	require.NoError(t, database.Preload("Filter").Order("id").Find(&users).Error)
	require.Len(t, users, DemoUserCount)

	var pairings int64
	require.NoError(t, database.Model(&Pairing{}).Count(&pairings).Error)
	assert.Zero(t, pairings)

	var male, female int
	for _, u := range users {
		assert.Equal(t, "idle", u.Status)
		assert.NotEmpty(t, u.Name)
		assert.GreaterOrEqual(t, u.Age, 18)
		assert.Contains(t, demoCities, u.City)
		assert.Equal(t, u.ID, u.Filter.UserID)
		assert.LessOrEqual(t, u.Filter.MinAge, u.Filter.MaxAge)
		switch u.Gender {
		case "male":
			male++
		case "female":
			female++
		}
	}
	assert.Equal(t, DemoUserCount/2, male)
	assert.Equal(t, DemoUserCount/2, female)
}
