package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate users: %v", err)
	}
	return conn
}

func seedUser(t *testing.T, conn *gorm.DB, role enums.Role, createdAt time.Time) models.User {
	t.Helper()

	user := models.User{
		ID:           uuid.New(),
		Username:     "user_" + uuid.NewString()[:8],
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		Role:         role,
		Mobile:       "9999999999",
		Address:      "Village Road 1",
		IsActive:     true,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestService_Get(t *testing.T) {
	conn := openTestDB(t)
	seeded := seedUser(t, conn, enums.RoleFarmer, time.Now().UTC())
	svc := newTestService(t, conn)

	dto, err := svc.Get(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if dto.ID != seeded.ID || dto.Role != enums.RoleFarmer {
		t.Fatalf("unexpected dto %+v", dto)
	}
}

func TestService_GetNotFound(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)

	_, err := svc.Get(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not found error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestService_ListPendingOnly(t *testing.T) {
	conn := openTestDB(t)
	now := time.Now().UTC()
	pending := seedUser(t, conn, enums.RoleBuyer, now.Add(-time.Minute))
	approved := seedUser(t, conn, enums.RoleBuyer, now)
	if err := conn.Model(&models.User{}).Where("id = ?", approved.ID).Update("is_approved", true).Error; err != nil {
		t.Fatalf("approve user: %v", err)
	}

	svc := newTestService(t, conn)
	rows, cursor, err := svc.List(context.Background(), ListFilters{OnlyPending: true, Limit: 10})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if cursor != "" {
		t.Fatalf("unexpected cursor %q", cursor)
	}
	if len(rows) != 1 || rows[0].ID != pending.ID {
		t.Fatalf("expected only the pending user, got %+v", rows)
	}
}

func TestService_ListPaginates(t *testing.T) {
	conn := openTestDB(t)
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedUser(t, conn, enums.RoleFarmer, now.Add(time.Duration(i)*time.Second))
	}

	svc := newTestService(t, conn)
	first, cursor, err := svc.List(context.Background(), ListFilters{Limit: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 2 || cursor == "" {
		t.Fatalf("expected full first page with cursor, got %d rows cursor %q", len(first), cursor)
	}

	second, nextCursor, err := svc.List(context.Background(), ListFilters{Limit: 2, Cursor: cursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 1 || nextCursor != "" {
		t.Fatalf("expected final page of 1, got %d rows cursor %q", len(second), nextCursor)
	}
	if second[0].ID == first[0].ID || second[0].ID == first[1].ID {
		t.Fatal("pages must not overlap")
	}
}

func TestService_SetApproval(t *testing.T) {
	conn := openTestDB(t)
	seeded := seedUser(t, conn, enums.RoleBuyer, time.Now().UTC())
	svc := newTestService(t, conn)

	dto, err := svc.SetApproval(context.Background(), enums.RoleAdmin, seeded.ID, true)
	if err != nil {
		t.Fatalf("set approval: %v", err)
	}
	if !dto.IsApproved {
		t.Fatal("expected user to be approved")
	}
}

func TestService_SetApprovalRequiresAdmin(t *testing.T) {
	conn := openTestDB(t)
	seeded := seedUser(t, conn, enums.RoleBuyer, time.Now().UTC())
	svc := newTestService(t, conn)

	_, err := svc.SetApproval(context.Background(), enums.RoleFarmer, seeded.ID, true)
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden code, got %v", err)
	}
}

func TestService_SetActive(t *testing.T) {
	conn := openTestDB(t)
	seeded := seedUser(t, conn, enums.RoleFarmer, time.Now().UTC())
	svc := newTestService(t, conn)

	dto, err := svc.SetActive(context.Background(), enums.RoleAdmin, seeded.ID, false)
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if dto.IsActive {
		t.Fatal("expected user to be deactivated")
	}
}
