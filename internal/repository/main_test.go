package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"discussify/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ctxForTest() context.Context {
	return context.Background()
}

// newTestDB opens a per-test in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Community{},
		&models.CommunityMember{},
		&models.CommunityBan{},
		&models.Notification{},
		&models.Post{},
	))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-real-hash",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestCommunity(t *testing.T, db *gorm.DB, repo CommunityRepository, name string, admin *models.User) *models.Community {
	t.Helper()
	community := &models.Community{
		Name:        name,
		Slug:        strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Description: "test community",
		Visibility:  models.VisibilityPublic,
		IsActive:    true,
		AdminUserID: admin.ID,
	}
	require.NoError(t, repo.Create(ctxForTest(), community))
	return community
}
