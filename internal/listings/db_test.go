package listings

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:listings_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	// The listings table is created by hand because sqlite has no text[]
	// column type; certifications degrade to a plain text column there.
	ddl := `CREATE TABLE listings (
		id TEXT PRIMARY KEY,
		farmer_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		crop_type TEXT NOT NULL,
		location TEXT NOT NULL,
		certifications TEXT,
		quantity INTEGER NOT NULL,
		price NUMERIC NOT NULL,
		bid_start_at DATETIME,
		bid_end_at DATETIME,
		image_url TEXT,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at DATETIME,
		updated_at DATETIME
	)`
	if err := conn.Exec(ddl).Error; err != nil {
		t.Fatalf("create listings table: %v", err)
	}
	if err := conn.AutoMigrate(&models.Bid{}, &models.Purchase{}, &models.Payment{}); err != nil {
		t.Fatalf("migrate ledgers: %v", err)
	}
	return conn
}
