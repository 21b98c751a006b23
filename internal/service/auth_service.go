package service

import (
	"context"
	"errors"
	"time"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for auth endpoints
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type CreateUserRequest struct {
	Name         string     `json:"name" binding:"required,max=150"`
	EmployeeCode string     `json:"employee_code" binding:"required,max=30"`
	Email        string     `json:"email" binding:"required,email"`
	Password     string     `json:"password" binding:"required,min=6"`
	Role         string     `json:"role" binding:"required,oneof=EMPLOYEE PURCHASING PURCHASING_MANAGER WAREHOUSE ADMIN"`
	DepartmentID *uuid.UUID `json:"department_id"`
}

// AuthService handles login, token issuance and account provisioning
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	CurrentUser(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error)
}

type authService struct {
	users repository.UserRepository
}

func NewAuthService(users repository.UserRepository) AuthService {
	return &authService{users: users}
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.New("invalid email or password")
	}
	if !user.IsActive {
		return nil, errors.New("account is deactivated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"exp":  now.Add(24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString(middleware.GetJWTSecret())
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &TokenResponse{Token: tokenString, User: user}, nil
}

func (s *authService) CurrentUser(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *authService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		Name:         req.Name,
		EmployeeCode: req.EmployeeCode,
		Email:        req.Email,
		Password:     string(hashed),
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
