package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"clubmail/config"
	"clubmail/internal/domain/user"
	"clubmail/internal/repository"
	clubmail_errors "clubmail/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: time.Duration(cfg.JWTExpiryMin) * time.Minute,
	}
}

type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

type LoginInput struct {
	Identity string
	Password string
}

type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
	User        UserInfo `json:"user"`
}

type UserInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
}

type AccessClaims struct {
	UserID string `json:"sub"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResponse, error) {
	if err := validateRegister(in); err != nil {
		return AuthResponse{}, err
	}

	if _, err := s.userRepo.GetByUsername(ctx, in.Username); err == nil {
		return AuthResponse{}, clubmail_errors.ErrAlreadyExists
	}
	if in.Email != "" {
		if _, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
			return AuthResponse{}, clubmail_errors.ErrAlreadyExists
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, err
	}

	now := time.Now()
	newUser := &user.User{
		ID:           uuid.New(),
		Username:     toNullString(in.Username),
		Email:        toNullString(in.Email),
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
		Role:         user.RoleMember,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return AuthResponse{}, err
	}

	return s.issueToken(*newUser)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResponse, error) {
	if in.Identity == "" || in.Password == "" {
		return AuthResponse{}, clubmail_errors.ErrInvalidInput
	}

	u, err := s.userRepo.GetByUsername(ctx, in.Identity)
	if err != nil {
		u, err = s.userRepo.GetByEmail(ctx, in.Identity)
	}
	if err != nil {
		return AuthResponse{}, clubmail_errors.ErrUnauthorized
	}
	if !u.IsActive {
		return AuthResponse{}, clubmail_errors.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return AuthResponse{}, clubmail_errors.ErrUnauthorized
	}

	return s.issueToken(u)
}

func (s *AuthService) issueToken(u user.User) (AuthResponse, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)
	claims := AccessClaims{
		UserID: u.ID.String(),
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		User: UserInfo{
			ID:          u.ID.String(),
			DisplayName: u.DisplayName,
			Username:    u.Username.String,
			Email:       u.Email.String,
			Role:        u.Role,
		},
	}, nil
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, clubmail_errors.ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, clubmail_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return AccessClaims{}, clubmail_errors.ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok {
		return AccessClaims{}, clubmail_errors.ErrUnauthorized
	}
	return *claims, nil
}

func validateRegister(in RegisterInput) error {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.DisplayName) == "" {
		return clubmail_errors.ErrInvalidInput
	}
	if len(in.Password) < 8 {
		return clubmail_errors.ErrInvalidInput
	}
	return nil
}

func toNullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

type ctxKey string

var userIDKey ctxKey = "user_id"
var userRoleKey ctxKey = "user_role"

func WithUserContext(ctx context.Context, userID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, userRoleKey, role)
	return ctx
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	value := ctx.Value(userIDKey)
	if value == nil {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(userRoleKey)
	if value == nil {
		return "", false
	}
	role, ok := value.(string)
	return role, ok
}
