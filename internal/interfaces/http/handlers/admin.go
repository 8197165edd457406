// internal/interfaces/http/handlers/admin.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fixstar/storefront-backend/internal/config"
	"github.com/fixstar/storefront-backend/internal/domain/cart"
	"github.com/fixstar/storefront-backend/internal/domain/order"
	"github.com/fixstar/storefront-backend/internal/pkg/email"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// AdminHandler handles administrative endpoints: order management, cart
// cleanup and notification settings
type AdminHandler struct {
	db           *gorm.DB
	orderService *order.Service
	cartService  *cart.Service
	dispatcher   *email.Dispatcher
	config       *config.Config
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *AdminHandler {
	sessions := cart.NewRedisSessionStore(redisClient, cfg.Cart.SessionTTL)
	cartService := cart.NewService(db, sessions, cfg)
	dispatcher := email.NewDispatcher(db, cfg, nil)

	return &AdminHandler{
		db:           db,
		orderService: order.NewService(db, cfg, cartService, dispatcher, nil),
		cartService:  cartService,
		dispatcher:   dispatcher,
		config:       cfg,
	}
}

// GetOrders handles GET /admin/orders
func (h *AdminHandler) GetOrders(c *gin.Context) {
	var req order.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	response, err := h.orderService.ListOrders(&req)
	if err != nil {
		if errors.Is(err, order.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": response,
	})
}

// UpdateOrderStatusRequest is the admin status update payload
type UpdateOrderStatusRequest struct {
	Status order.Status `json:"status" binding:"required"`
}

// UpdateOrderStatus handles PUT /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
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

	if !order.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown order status",
		})
		return
	}

	updated, err := h.orderService.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		h.writeAdminOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
		"data":    updated,
	})
}

// CancelOrder handles PUT /admin/orders/:id/cancel
func (h *AdminHandler) CancelOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	canceled, err := h.orderService.CancelOrder(c.Request.Context(), orderID)
	if err != nil {
		h.writeAdminOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order canceled",
		"data":    canceled,
	})
}

// CleanupCarts handles POST /admin/carts/cleanup, removing persisted cart
// rows older than the configured max age
func (h *AdminHandler) CleanupCarts(c *gin.Context) {
	removed, err := h.cartService.CleanupExpired(h.config.Cart.CleanupMaxAge)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Cart cleanup failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleanup completed",
		"data":    gin.H{"removed": removed},
	})
}

// Notification settings CRUD

// GetNotificationSettings handles GET /admin/notification-settings
func (h *AdminHandler) GetNotificationSettings(c *gin.Context) {
	var settings []order.EmailNotificationSettings
	if err := h.db.Order("id ASC").Find(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve notification settings",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": settings,
	})
}

// NotificationSettingsRequest is the create/update payload
type NotificationSettingsRequest struct {
	Name            string `json:"name" binding:"required"`
	IsActive        bool   `json:"is_active"`
	Recipients      string `json:"recipients"`
	SMTPServer      string `json:"smtp_server"`
	SMTPPort        int    `json:"smtp_port"`
	UseTLS          bool   `json:"use_tls"`
	SenderEmail     string `json:"sender_email"`
	SMTPUsername    string `json:"smtp_username"`
	SMTPPassword    string `json:"smtp_password"`
	SubjectTemplate string `json:"subject_template"`
	Signature       string `json:"signature"`
}

// CreateNotificationSettings handles POST /admin/notification-settings
func (h *AdminHandler) CreateNotificationSettings(c *gin.Context) {
	var req NotificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	settings := order.EmailNotificationSettings{
		Name:            req.Name,
		IsActive:        req.IsActive,
		Recipients:      req.Recipients,
		SMTPServer:      req.SMTPServer,
		SMTPPort:        req.SMTPPort,
		UseTLS:          req.UseTLS,
		SenderEmail:     req.SenderEmail,
		SMTPUsername:    req.SMTPUsername,
		SMTPPassword:    req.SMTPPassword,
		SubjectTemplate: req.SubjectTemplate,
		Signature:       req.Signature,
	}

	if err := h.db.Create(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create notification settings",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Notification settings created",
		"data":    settings,
	})
}

// UpdateNotificationSettings handles PUT /admin/notification-settings/:id
func (h *AdminHandler) UpdateNotificationSettings(c *gin.Context) {
	settings, ok := h.findSettings(c)
	if !ok {
		return
	}

	var req NotificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	settings.Name = req.Name
	settings.IsActive = req.IsActive
	settings.Recipients = req.Recipients
	settings.SMTPServer = req.SMTPServer
	settings.SMTPPort = req.SMTPPort
	settings.UseTLS = req.UseTLS
	settings.SenderEmail = req.SenderEmail
	settings.SMTPUsername = req.SMTPUsername
	if req.SMTPPassword != "" {
		settings.SMTPPassword = req.SMTPPassword
	}
	settings.SubjectTemplate = req.SubjectTemplate
	settings.Signature = req.Signature

	if err := h.db.Save(settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update notification settings",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification settings updated",
		"data":    settings,
	})
}

// DeleteNotificationSettings handles DELETE /admin/notification-settings/:id
func (h *AdminHandler) DeleteNotificationSettings(c *gin.Context) {
	settings, ok := h.findSettings(c)
	if !ok {
		return
	}

	if err := h.db.Delete(settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete notification settings",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Notification settings deleted",
	})
}

// TestNotificationSettings handles POST /admin/notification-settings/:id/test
func (h *AdminHandler) TestNotificationSettings(c *gin.Context) {
	settings, ok := h.findSettings(c)
	if !ok {
		return
	}

	if err := h.dispatcher.TestConnection(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "SMTP connection test failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "SMTP connection test succeeded",
	})
}

func (h *AdminHandler) findSettings(c *gin.Context) (*order.EmailNotificationSettings, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid settings ID",
		})
		return nil, false
	}

	var settings order.EmailNotificationSettings
	err = h.db.First(&settings, uint(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Notification settings not found",
		})
		return nil, false
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve notification settings",
		})
		return nil, false
	}

	return &settings, true
}

func (h *AdminHandler) writeAdminOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, order.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Order operation failed"})
	}
}
