// internal/interfaces/http/handlers/admin.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/checkout-backend/internal/domain/coupon"
	"github.com/your-org/checkout-backend/internal/domain/order"
	"github.com/your-org/checkout-backend/internal/interfaces/http/middleware"
)

// AdminHandler handles administrative endpoints
type AdminHandler struct {
	orderService  *order.Service
	couponService *coupon.Service
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(orderService *order.Service, couponService *coupon.Service) *AdminHandler {
	return &AdminHandler{
		orderService:  orderService,
		couponService: couponService,
	}
}

// UpdateOrderStatusRequest represents an administrative status change
type UpdateOrderStatusRequest struct {
	Status   string `json:"status" binding:"required"`
	Message  string `json:"message"`
	Override bool   `json:"override"`
}

// ListOrders handles GET /admin/orders
func (h *AdminHandler) ListOrders(c *gin.Context) {
	var req order.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.orderService.List(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    response,
	})
}

// GetOrder handles GET /admin/orders/:id
func (h *AdminHandler) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	o, err := h.orderService.GetOrder(uint(orderID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// UpdateOrderStatus handles PUT /admin/orders/:id/status. With override set
// the transition table is bypassed and the history entry carries the flag.
func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	adminID, _ := middleware.GetUserIDFromContext(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	o, err := h.orderService.UpdateStatus(uint(orderID), order.Status(req.Status), req.Message, adminID, req.Override)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated successfully",
		"data":    o,
	})
}

// ConfirmManualPayment handles POST /admin/orders/:id/confirm-payment
func (h *AdminHandler) ConfirmManualPayment(c *gin.Context) {
	adminID, _ := middleware.GetUserIDFromContext(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req struct {
		TransactionRef string `json:"transaction_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	o, err := h.orderService.ConfirmManualPayment(uint(orderID), req.TransactionRef, adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment confirmed successfully",
		"data":    o,
	})
}

// ExpireStaleOrders handles POST /admin/orders/expire-stale. Normally driven
// by a scheduler; exposed for manual sweeps.
func (h *AdminHandler) ExpireStaleOrders(c *gin.Context) {
	count, err := h.orderService.ExpireStalePendingOrders(time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stale pending orders expired",
		"data":    gin.H{"expired": count},
	})
}

// CreateCoupon handles POST /admin/coupons
func (h *AdminHandler) CreateCoupon(c *gin.Context) {
	var req coupon.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	created, err := h.couponService.CreateCoupon(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Coupon created successfully",
		"data":    created,
	})
}

// UpdateCoupon handles PUT /admin/coupons/:id
func (h *AdminHandler) UpdateCoupon(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coupon ID"})
		return
	}

	var req coupon.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	updated, err := h.couponService.UpdateCoupon(uint(couponID), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon updated successfully",
		"data":    updated,
	})
}

// ListCoupons handles GET /admin/coupons
func (h *AdminHandler) ListCoupons(c *gin.Context) {
	coupons, err := h.couponService.ListCoupons()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupons retrieved successfully",
		"data":    coupons,
	})
}

// GetCouponStats handles GET /admin/coupons/:id/stats
func (h *AdminHandler) GetCouponStats(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coupon ID"})
		return
	}

	stats, err := h.couponService.GetStats(uint(couponID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon stats retrieved successfully",
		"data":    stats,
	})
}
