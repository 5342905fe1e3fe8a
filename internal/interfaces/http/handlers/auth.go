// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/checkout-backend/internal/config"
	"github.com/your-org/checkout-backend/internal/domain/cart"
	"github.com/your-org/checkout-backend/internal/domain/user"
	"github.com/your-org/checkout-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	userService *user.Service
	cartService *cart.Service
	jwtManager  *auth.JWTManager
	config      *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		userService: user.NewService(db, cfg),
		cartService: cart.NewService(db, redisClient, cfg),
		jwtManager:  auth.NewJWTManager(cfg),
		config:      cfg,
	}
}

// TokenPair carries the issued tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	u, err := h.userService.Register(&req)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
		return
	}

	tokens, err := h.issueTokens(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to issue tokens",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"data": gin.H{
			"user":   u,
			"tokens": tokens,
		},
	})
}

// Login handles POST /auth/login. A guest cart identified by the session
// cookie is reconciled into the user's cart as part of login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	u, err := h.userService.Authenticate(&req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid email or password",
		})
		return
	}

	if sessionID, err := c.Cookie(cartSessionCookie); err == nil && sessionID != "" {
		if err := h.cartService.ReconcileOnLogin(u.ID, sessionID); err != nil {
			// Login still succeeds; the guest cart stays behind the cookie
			logrus.WithFields(logrus.Fields{
				"user_id": u.ID,
				"error":   err.Error(),
			}).Warn("Failed to reconcile guest cart on login")
		}
	}

	tokens, err := h.issueTokens(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to issue tokens",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"data": gin.H{
			"user":   u,
			"tokens": tokens,
		},
	})
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	claims, err := h.jwtManager.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid or expired refresh token",
		})
		return
	}

	u, err := h.userService.GetByID(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not found",
		})
		return
	}

	tokens, err := h.issueTokens(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to issue tokens",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Token refreshed successfully",
		"data":    gin.H{"tokens": tokens},
	})
}

func (h *AuthHandler) issueTokens(u *user.User) (*TokenPair, error) {
	accessToken, err := h.jwtManager.GenerateAccessToken(u.ID, u.Email, u.IsAdmin)
	if err != nil {
		return nil, err
	}
	refreshToken, err := h.jwtManager.GenerateRefreshToken(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
