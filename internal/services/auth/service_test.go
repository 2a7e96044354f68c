package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
	redrepo "github.com/encontrocomfe/backend/internal/repo/redis"
	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
)

type memUserStore struct {
	nextID int64
	byMail map[string]pgrepo.CredentialsRecord
}

func newMemUserStore() *memUserStore {
	return &memUserStore{nextID: 1, byMail: map[string]pgrepo.CredentialsRecord{}}
}

func (s *memUserStore) Create(_ context.Context, email, passwordHash string, now time.Time) (model.User, error) {
	if _, ok := s.byMail[email]; ok {
		return model.User{}, pgrepo.ErrEmailTaken
	}
	user := model.User{ID: s.nextID, Email: email, Role: enums.RoleUser, CreatedAt: now}
	s.nextID++
	s.byMail[email] = pgrepo.CredentialsRecord{User: user, PasswordHash: passwordHash}
	return user, nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (pgrepo.CredentialsRecord, error) {
	rec, ok := s.byMail[email]
	if !ok {
		return pgrepo.CredentialsRecord{}, pgrepo.ErrUserNotFound
	}
	return rec, nil
}

func (s *memUserStore) GetByID(_ context.Context, userID int64) (model.User, error) {
	for _, rec := range s.byMail {
		if rec.User.ID == userID {
			return rec.User, nil
		}
	}
	return model.User{}, pgrepo.ErrUserNotFound
}

func TestRegisterThenLogin(t *testing.T) {
	svc, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	regRes, err := svc.Register(ctx, "maria@exemplo.com", "senha-forte-123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if regRes.Me.ID <= 0 || regRes.AccessToken == "" {
		t.Fatalf("unexpected register result: %+v", regRes)
	}

	if _, err := svc.Register(ctx, "maria@exemplo.com", "outra-senha-456"); !errors.Is(err, authsvc.ErrEmailTaken) {
		t.Fatalf("duplicate register should fail with ErrEmailTaken, got %v", err)
	}

	loginRes, err := svc.Login(ctx, "maria@exemplo.com", "senha-forte-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loginRes.Me.ID != regRes.Me.ID {
		t.Fatalf("login user mismatch: got %d want %d", loginRes.Me.ID, regRes.Me.ID)
	}

	if _, err := svc.Login(ctx, "maria@exemplo.com", "senha-errada-999"); !errors.Is(err, authsvc.ErrBadCredentials) {
		t.Fatalf("wrong password should fail with ErrBadCredentials, got %v", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	svc, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	loginRes, err := svc.Register(ctx, "joao@exemplo.com", "senha-forte-123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	refreshRes, err := svc.Refresh(ctx, loginRes.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if refreshRes.RefreshToken == loginRes.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}

	if _, err := svc.Refresh(ctx, loginRes.RefreshToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("old refresh token should be unauthorized, got err=%v", err)
	}

	if _, err := svc.ValidateAccessToken(ctx, refreshRes.AccessToken); err != nil {
		t.Fatalf("new access token validation failed: %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, cleanup := newAuthServiceForTest(t)
	defer cleanup()

	ctx := context.Background()
	loginRes, err := svc.Register(ctx, "ana@exemplo.com", "senha-forte-123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	claims, err := svc.ValidateAccessToken(ctx, loginRes.AccessToken)
	if err != nil {
		t.Fatalf("validate access token before logout: %v", err)
	}

	if err := svc.Logout(ctx, claims.SID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := svc.ValidateAccessToken(ctx, loginRes.AccessToken); !errors.Is(err, authsvc.ErrUnauthorized) {
		t.Fatalf("access token should be unauthorized after logout, got err=%v", err)
	}
}

func newAuthServiceForTest(t *testing.T) (*authsvc.Service, func()) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{Addr: mini.Addr()})
	sessions := redrepo.NewSessionRepo(client)
	jwtManager := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	svc := authsvc.NewService(jwtManager, sessions, newMemUserStore(), 45*24*time.Hour, 4)

	cleanup := func() {
		_ = client.Close()
		mini.Close()
	}

	return svc, cleanup
}
