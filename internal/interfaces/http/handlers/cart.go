// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/checkout-backend/internal/config"
	"github.com/your-org/checkout-backend/internal/domain/cart"
	"github.com/your-org/checkout-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// cartSessionCookie identifies a guest cart across requests
const cartSessionCookie = "cart_session_id"

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	config      *config.Config
}

// NewCartHandler creates a new cart handler
func NewCartHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *CartHandler {
	return &CartHandler{
		cartService: cart.NewService(db, redisClient, cfg),
		config:      cfg,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, sessionID := h.identity(c)

	cartResponse, err := h.cartService.GetCart(userID, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    cartResponse,
	})
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, sessionID := h.identity(c)

	var req cart.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cartResponse, err := h.cartService.AddToCart(userID, sessionID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    cartResponse,
	})
}

// UpdateCartItem handles PUT /cart/items/:product_id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, sessionID := h.identity(c)

	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}
	variant := c.Query("variant")

	var req cart.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cartResponse, err := h.cartService.UpdateItem(userID, sessionID, uint(productID), variant, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
		"data":    cartResponse,
	})
}

// RemoveCartItem handles DELETE /cart/items/:product_id
func (h *CartHandler) RemoveCartItem(c *gin.Context) {
	userID, sessionID := h.identity(c)

	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid product ID",
		})
		return
	}
	variant := c.Query("variant")

	cartResponse, err := h.cartService.RemoveItem(userID, sessionID, uint(productID), variant)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
		"data":    cartResponse,
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, sessionID := h.identity(c)

	if err := h.cartService.ClearCart(userID, sessionID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}

// identity resolves who the cart belongs to: the authenticated user when
// present, otherwise the guest session cookie (created on first touch)
func (h *CartHandler) identity(c *gin.Context) (*uint, string) {
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		return &userID, ""
	}
	return nil, h.getOrCreateSessionID(c)
}

func (h *CartHandler) getOrCreateSessionID(c *gin.Context) string {
	if sessionID, err := c.Cookie(cartSessionCookie); err == nil && sessionID != "" {
		return sessionID
	}

	sessionID := uuid.New().String()
	maxAge := int(h.config.Checkout.GuestCartTTL.Seconds())
	c.SetCookie(cartSessionCookie, sessionID, maxAge, "/", "", false, true)
	return sessionID
}
