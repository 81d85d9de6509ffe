package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups everything SetupRouter mounts. MercadoPago is nil unless
// that provider is selected.
type Handlers struct {
	Payments    *PaymentHandler
	Webhooks    *WebhookHandler
	MercadoPago *MercadoPagoWebhookHandler
	Admin       *AdminHandler
	Sessions    SessionVerifier
	Limiter     *IPRateLimiter
}

// SetupRouter configures the Gin router with all routes.
func SetupRouter(h Handlers, ginMode string, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(ginMode)
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware())

	// Public
	router.GET("/health", h.Payments.Health)
	router.GET("/plans", h.Payments.Plans)
	router.POST("/process-payment", RateLimitMiddleware(h.Limiter), h.Payments.ProcessPayment)

	// Gateway notifications (public, optionally signed)
	router.POST("/webhook", h.Webhooks.Receive)
	router.POST("/webhook/furia", h.Webhooks.Receive)
	router.GET("/webhook", h.Webhooks.MethodNotAllowed)
	if h.MercadoPago != nil {
		router.POST("/webhook/mercadopago", h.MercadoPago.Receive)
	}

	// Operators
	router.POST("/auth/login", RateLimitMiddleware(h.Limiter), h.Admin.Login)
	admin := router.Group("/admin")
	admin.Use(SessionAuthMiddleware(h.Sessions))
	{
		admin.GET("/transactions/:id", h.Admin.Transaction)
		admin.GET("/outbox", h.Admin.Outbox)
	}

	return router, nil
}
