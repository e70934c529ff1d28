package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"campus-sis/config"
	"campus-sis/internal/dto"
	"campus-sis/internal/model"
	"campus-sis/internal/repository"
	"campus-sis/pkg/jwt"
)

func newAuthFixture(t *testing.T) (AuthService, *mockUserRepo) {
	t.Helper()
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-for-unit-tests",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
	}
	users := newMockUserRepo()
	repo := &repository.Repository{User: users}
	svc := NewAuthService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, zap.NewNop())
	return svc, users
}

func seedUser(t *testing.T, users *mockUserRepo, email, password, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	u := &model.User{Name: "Test User", Email: email, PasswordHash: string(hash), Role: role}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestAuthService_Login(t *testing.T) {
	svc, users := newAuthFixture(t)
	seedUser(t, users, "admin@uni.lk", "correct-password", "admin")
	ctx := context.Background()

	tokens, err := svc.Login(ctx, &dto.LoginRequest{Email: "admin@uni.lk", Password: "correct-password"})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Error("期望返回 access + refresh token")
	}

	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "admin@uni.lk", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("密码错误期望 ErrInvalidCredentials，实际 %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "nobody@uni.lk", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("用户不存在也应返回 ErrInvalidCredentials（不暴露账号存在性），实际 %v", err)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	svc, users := newAuthFixture(t)
	seedUser(t, users, "staff@uni.lk", "pw", "staff")
	ctx := context.Background()

	tokens, err := svc.Login(ctx, &dto.LoginRequest{Email: "staff@uni.lk", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	refreshed, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	if err != nil {
		t.Fatalf("刷新失败: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("刷新应签发新 access token")
	}

	// access token 不能当 refresh token 用
	if _, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: tokens.AccessToken}); !errors.Is(err, ErrRefreshInvalid) {
		t.Errorf("access token 刷新期望 ErrRefreshInvalid，实际 %v", err)
	}
	if _, err := svc.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: "garbage"}); !errors.Is(err, ErrRefreshInvalid) {
		t.Errorf("非法 token 期望 ErrRefreshInvalid，实际 %v", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	svc, users := newAuthFixture(t)
	u := seedUser(t, users, "admin@uni.lk", "pw", "admin")
	ctx := context.Background()

	detail, err := svc.Me(ctx, u.UserID)
	if err != nil {
		t.Fatalf("Me 失败: %v", err)
	}
	if detail.Email != "admin@uni.lk" || detail.Role != "admin" {
		t.Errorf("用户信息不符: %+v", detail)
	}

	if _, err := svc.Me(ctx, "no-such-user"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际 %v", err)
	}
}

func TestAuthService_Logout_NoCache(t *testing.T) {
	svc, users := newAuthFixture(t)
	seedUser(t, users, "admin@uni.lk", "pw", "admin")

	// 未配置 Redis 时登出是空操作，不报错
	if err := svc.Logout(context.Background(), "some-jti", time.Now().Add(time.Hour)); err != nil {
		t.Errorf("无缓存登出不应报错: %v", err)
	}
}
