// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/checkout-backend/internal/domain/payment"
	"github.com/your-org/checkout-backend/internal/interfaces/http/middleware"
)

// PaymentHandler handles payment endpoints. The client-side confirmation and
// the gateway webhook go through the same verification path; whichever lands
// first completes the payment and the other becomes a no-op.
type PaymentHandler struct {
	paymentService *payment.Service
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *payment.Service) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// InitiatePayment handles POST /payments/orders/:id/initiate
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	response, err := h.paymentService.Initiate(userID, uint(orderID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment initiated successfully",
		"data":    response,
	})
}

// RetryPayment handles POST /payments/orders/:id/retry
func (h *PaymentHandler) RetryPayment(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	response, err := h.paymentService.Retry(userID, uint(orderID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment retry initiated successfully",
		"data":    response,
	})
}

// VerifyPayment handles POST /payments/verify, the client-side confirmation
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req payment.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	o, err := h.paymentService.Verify(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment verified successfully",
		"data":    o,
	})
}

// PaymentWebhook handles POST /payments/webhook, the gateway's server-side
// confirmation. Same verification as the client path.
func (h *PaymentHandler) PaymentWebhook(c *gin.Context) {
	var req payment.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid webhook payload",
		})
		return
	}

	if _, err := h.paymentService.Verify(&req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Webhook processed",
	})
}

// ReportFailure handles POST /payments/orders/:id/failure
func (h *PaymentHandler) ReportFailure(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	o, err := h.paymentService.HandleFailure(userID, uint(orderID), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment failure recorded",
		"data":    o,
	})
}
