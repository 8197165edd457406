// internal/interfaces/http/handlers/order.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/fixstar/storefront-backend/internal/domain/cart"
	"github.com/fixstar/storefront-backend/internal/domain/order"
	"github.com/fixstar/storefront-backend/internal/interfaces/http/middleware"
	"github.com/fixstar/storefront-backend/internal/pkg/email"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// OrderHandler handles customer-facing order endpoints
type OrderHandler struct {
	orderService *order.Service
	config       *config.Config
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *OrderHandler {
	sessions := cart.NewRedisSessionStore(redisClient, cfg.Cart.SessionTTL)
	cartService := cart.NewService(db, sessions, cfg)
	notifier := email.NewDispatcher(db, cfg, nil)

	return &OrderHandler{
		orderService: order.NewService(db, cfg, cartService, notifier, nil),
		config:       cfg,
	}
}

// PlaceOrder handles POST /orders. Works for both authenticated users and
// guest sessions; the cart that gets converted follows the caller's
// identity.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	userID := currentUserID(c)
	userEmail, _ := middleware.GetUserEmailFromContext(c)
	sessionID := c.GetHeader("X-Session-ID")

	if userID == nil && sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "X-Session-ID header required for guest checkout",
		})
		return
	}

	var req order.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	placed, err := h.orderService.PlaceOrder(c.Request.Context(), userID, userEmail, sessionID, &req)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data":    placed,
	})
}

// GetMyOrders handles GET /orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	response, err := h.orderService.GetUserOrders(userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": response,
	})
}

// GetOrder handles GET /orders/:id. Customers see only their own orders;
// admins see everything.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	found, err := h.orderService.GetOrder(orderID)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	if !h.canViewOrder(c, found) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": found,
	})
}

// CancelOrder handles PUT /orders/:id/cancel, returning reserved stock
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	found, err := h.orderService.GetOrder(orderID)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}
	if !h.canViewOrder(c, found) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
		return
	}

	canceled, err := h.orderService.CancelOrder(c.Request.Context(), orderID)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order canceled",
		"data":    canceled,
	})
}

func (h *OrderHandler) canViewOrder(c *gin.Context, o *order.Order) bool {
	if middleware.IsAdminFromContext(c) {
		return true
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	return ok && o.UserID != nil && *o.UserID == userID
}

func (h *OrderHandler) writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, order.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
	case errors.Is(err, order.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Order operation failed"})
	}
}
