package api

import (
	"net/http"
	"strconv"
	"time"

	"tailorworks/internal/models"
	"tailorworks/internal/service"
	"tailorworks/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService *service.OrderService
	queryService *service.OrderQueryService
	tenants      *service.TenantDirectory
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orderService *service.OrderService,
	queryService *service.OrderQueryService,
	tenants *service.TenantDirectory,
) *Handler {
	return &Handler{
		orderService: orderService,
		queryService: queryService,
		tenants:      tenants,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/shops", h.registerShop)

		shop := v1.Group("/shops/:tenantId")
		{
			shop.POST("/orders", h.createOrder)
			shop.PUT("/orders/:orderId", h.updateOrder)
			shop.GET("/orders", h.listOrders)
			shop.GET("/orders/:orderId", h.getOrder)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type registerShopRequest struct {
	Name string `json:"name" binding:"required"`
}

// registerShop handles tenant registration
func (h *Handler) registerShop(c *gin.Context) {
	var req registerShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	tenant, err := h.tenants.Register(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tenant)
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	var req service.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.orderService.CreateOrder(c.Request.Context(), tenantID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// updateOrder handles order updates
func (h *Handler) updateOrder(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req service.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.orderService.UpdateOrder(c.Request.Context(), tenantID, orderID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// listOrders handles the filtered, paginated order listing
func (h *Handler) listOrders(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}

	var req service.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	result, err := h.queryService.ListOrders(c.Request.Context(), tenantID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	view, err := h.queryService.GetOrder(c.Request.Context(), tenantID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func tenantParam(c *gin.Context) (int64, bool) {
	tenantID, err := strconv.ParseInt(c.Param("tenantId"), 10, 64)
	if err != nil || tenantID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid tenant ID",
			"code":  models.ErrInvalidTenant.Code,
		})
		return 0, false
	}
	return tenantID, true
}

// respondError maps the domain error taxonomy to HTTP statuses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"

	if de, ok := models.AsDomainError(err); ok {
		code = de.Code
		switch de.Code {
		case models.ErrInvalidTenant.Code, models.ErrValidation.Code, models.ErrMissingIdentifiers.Code:
			status = http.StatusBadRequest
		case models.ErrTenantNotFound.Code, models.ErrOrderNotFound.Code:
			status = http.StatusNotFound
		case models.ErrStorageQuotaExceeded.Code:
			status = http.StatusInsufficientStorage
		case models.ErrSequenceUnavailable.Code, models.ErrTransactionUnavailable.Code:
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  code,
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
