package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agrimandi/agrimandi-backend/internal/users"
	pkgauth "github.com/agrimandi/agrimandi-backend/pkg/auth"
	"github.com/agrimandi/agrimandi-backend/pkg/auth/session"
	"github.com/agrimandi/agrimandi-backend/pkg/config"
	dbpkg "github.com/agrimandi/agrimandi-backend/pkg/db"
	"github.com/agrimandi/agrimandi-backend/pkg/db/models"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	pkgerrors "github.com/agrimandi/agrimandi-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate users: %v", err)
	}
	return conn
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "agrimandi-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

type stubSessionManager struct {
	generated map[string]string
	revoked   []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{generated: map[string]string{}}
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.generated[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.generated[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.generated, oldAccessID)
	newID := uuid.NewString()
	token := "refresh-" + newID
	s.generated[newID] = token
	return newID, token, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	delete(s.generated, accessID)
	return nil
}

func registerUser(t *testing.T, conn *gorm.DB, role, email string) *users.UserDTO {
	t.Helper()
	reg, err := NewRegisterService(RegisterServiceParams{DB: dbpkg.NewWithConn(conn)})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	dto, err := reg.Register(context.Background(), RegisterRequest{
		Username: "user_" + uuid.NewString()[:8],
		Email:    email,
		Password: "s3cret-pass",
		Role:     role,
		Mobile:   "9876543210",
		Address:  "Village Road 1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return dto
}

func newAuthService(t *testing.T, conn *gorm.DB, sessions sessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func TestRegisterStartsUnapproved(t *testing.T) {
	conn := openTestDB(t)

	dto := registerUser(t, conn, "farmer", "farmer@example.com")
	if dto.Role != enums.RoleFarmer {
		t.Fatalf("role = %s, want farmer", dto.Role)
	}
	if dto.IsApproved {
		t.Fatal("new accounts must start unapproved")
	}
	if !dto.IsActive {
		t.Fatal("new accounts must start active")
	}
}

func TestRegisterRejectsAdminAndDuplicates(t *testing.T) {
	conn := openTestDB(t)
	reg, err := NewRegisterService(RegisterServiceParams{DB: dbpkg.NewWithConn(conn)})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}

	base := RegisterRequest{
		Username: "grower1",
		Email:    "grower@example.com",
		Password: "s3cret-pass",
		Role:     "admin",
		Mobile:   "9876543210",
		Address:  "Village Road 1",
	}
	if _, err := reg.Register(context.Background(), base); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("admin register: got %v, want VALIDATION_ERROR", err)
	}

	base.Role = "farmer"
	if _, err := reg.Register(context.Background(), base); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := reg.Register(context.Background(), base); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("duplicate register: got %v, want CONFLICT", err)
	}
}

func TestRegisterBuyerTypeOnlyForBuyers(t *testing.T) {
	conn := openTestDB(t)
	reg, err := NewRegisterService(RegisterServiceParams{DB: dbpkg.NewWithConn(conn)})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}

	wholesaler := "wholesaler"
	_, err = reg.Register(context.Background(), RegisterRequest{
		Username:  "grower2",
		Email:     "grower2@example.com",
		Password:  "s3cret-pass",
		Role:      "farmer",
		Mobile:    "9876543210",
		Address:   "Village Road 1",
		BuyerType: &wholesaler,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("farmer with buyer_type: got %v, want VALIDATION_ERROR", err)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	conn := openTestDB(t)
	registerUser(t, conn, "buyer", "buyer@example.com")
	sessions := newStubSessionManager()
	svc := newAuthService(t, conn, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "buyer@example.com",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("token pair missing")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != enums.RoleBuyer {
		t.Fatalf("claims role = %s, want buyer", claims.Role)
	}
	if claims.IsApproved {
		t.Fatal("unapproved account must carry is_approved=false")
	}
	if _, ok := sessions.generated[claims.ID]; !ok {
		t.Fatal("refresh session not stored under jti")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	conn := openTestDB(t)
	registerUser(t, conn, "buyer", "buyer@example.com")
	svc := newAuthService(t, conn, newStubSessionManager())

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "buyer@example.com",
		Password: "wrong",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("bad password: got %v, want UNAUTHORIZED", err)
	}
}

func TestRefreshRotatesSessionAndPicksUpApproval(t *testing.T) {
	conn := openTestDB(t)
	dto := registerUser(t, conn, "buyer", "buyer@example.com")
	sessions := newStubSessionManager()
	svc := newAuthService(t, conn, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "buyer@example.com",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Admin approves between login and refresh.
	if err := users.NewRepository(conn).SetApproval(context.Background(), dto.ID, true); err != nil {
		t.Fatalf("approve: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if !claims.IsApproved {
		t.Fatal("refreshed token should carry the new approval flag")
	}

	// The old refresh token is burned.
	if _, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	}); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("replayed refresh: got %v, want UNAUTHORIZED", err)
	}
}
