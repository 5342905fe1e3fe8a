// internal/domain/user/service.go
package user

import (
	"fmt"
	"time"

	"github.com/your-org/checkout-backend/internal/config"
	"github.com/your-org/checkout-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// Service handles user business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new user service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new user account
func (s *Service) Register(req *RegisterRequest) (*User, error) {
	var existing User
	if err := s.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("email already registered")
	}

	hashed, err := auth.HashPassword(req.Password, s.config.Security.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := User{
		Email:     req.Email,
		Password:  hashed,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		IsActive:  true,
	}

	if err := s.db.Create(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &u, nil
}

// Authenticate verifies credentials and records the login time
func (s *Service) Authenticate(req *LoginRequest) (*User, error) {
	var u User
	if err := s.db.Where("email = ? AND is_active = ?", req.Email, true).First(&u).Error; err != nil {
		return nil, fmt.Errorf("invalid email or password")
	}

	if !auth.CheckPassword(req.Password, u.Password) {
		return nil, fmt.Errorf("invalid email or password")
	}

	now := time.Now().UTC()
	s.db.Model(&u).Update("last_login_at", now)
	u.LastLoginAt = &now

	return &u, nil
}

// GetByID retrieves a user by id
func (s *Service) GetByID(id uint) (*User, error) {
	var u User
	if err := s.db.First(&u, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &u, nil
}
