// Package dbtest opens an isolated in-memory SQLite database with the full
// schema migrated, for repository and service tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tenantlink/internal/common"
	"tenantlink/internal/dbsql"
)

func New(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	// every statement must hit the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, dbsql.AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func SeedUser(t *testing.T, db *gorm.DB, name string, role common.Role) *dbsql.User {
	t.Helper()
	u := &dbsql.User{
		Name:  name,
		Email: name + "@example.com",
		Role:  role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// SeedProperty creates a property owned by landlordID; facilitatorID may be empty.
func SeedProperty(t *testing.T, db *gorm.DB, landlordID, facilitatorID string) *dbsql.Property {
	t.Helper()
	p := &dbsql.Property{
		Name:       "Property " + landlordID[:8],
		Address:    "1 Test Street",
		LandlordID: landlordID,
	}
	if facilitatorID != "" {
		p.FacilitatorID = &facilitatorID
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func SeedTenancy(t *testing.T, db *gorm.DB, tenantID, propertyID string, status dbsql.TenancyStatus, acceptedAt *time.Time) *dbsql.TenantInvitation {
	t.Helper()
	link := &dbsql.TenantInvitation{
		TenantID:   tenantID,
		PropertyID: propertyID,
		Status:     status,
		AcceptedAt: acceptedAt,
	}
	require.NoError(t, db.Create(link).Error)
	return link
}

// SeedMessage inserts a message with an explicit timestamp so ordering is deterministic.
func SeedMessage(t *testing.T, db *gorm.DB, senderID, receiverID, content string, at time.Time) *dbsql.Message {
	t.Helper()
	m := &dbsql.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  at.UTC(),
	}
	require.NoError(t, db.Create(m).Error)
	return m
}
