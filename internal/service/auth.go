package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("用戶不存在或密碼錯誤")

type AuthService struct {
	Repo      repository.ReviewRepository
	JWTSecret []byte
	TTL       time.Duration
}

func NewAuthService(repo repository.ReviewRepository, secret string) *AuthService {
	return &AuthService{
		Repo:      repo,
		JWTSecret: []byte(secret),
		TTL:       24 * time.Hour,
	}
}

// InitAdmin 初始化預設管理者 (如果沒有用戶的話)
func (s *AuthService) InitAdmin(ctx context.Context, username, password string) error {
	count, err := s.Repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.Repo.CreateUser(ctx, domain.User{Username: username, Password: string(hashed)}); err != nil {
		return err
	}
	logrus.Infof("[Auth] 已建立預設管理者 %s", username)
	return nil
}

// Login 驗證並回傳 Token
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.Repo.FindUser(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.Username,
		"exp":  time.Now().Add(s.TTL).Unix(),
		"role": "reviewer",
	})
	return token.SignedString(s.JWTSecret)
}

// ParseToken 驗證簽章與期限，回傳使用者名稱
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	return ParseToken(s.JWTSecret, tokenString)
}

func ParseToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	sub, _ := claims.GetSubject()
	return sub, nil
}
