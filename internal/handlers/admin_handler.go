package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/petbox/petbox-payments/internal/core/domain"
	"github.com/petbox/petbox-payments/internal/core/ports"
)

// SessionIssuer signs operator sessions.
type SessionIssuer interface {
	SessionVerifier
	Issue(s *domain.Session) (string, error)
}

// AdminHandler serves operator login and the admin lookups.
type AdminHandler struct {
	auth       ports.Authenticator
	sessions   SessionIssuer
	payments   CheckoutService
	dispatcher EventDispatcher
	logger     *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	auth ports.Authenticator,
	sessions SessionIssuer,
	payments CheckoutService,
	dispatcher EventDispatcher,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{auth: auth, sessions: sessions, payments: payments, dispatcher: dispatcher, logger: logger}
}

// Login handles POST /auth/login
func (h *AdminHandler) Login(c *gin.Context) {
	var creds domain.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.KindValidation, "message": err.Error()})
		return
	}

	session, err := h.auth.Authenticate(c.Request.Context(), creds)
	if err != nil {
		h.logger.Warn("operator login failed", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.KindAuthentication, "message": "Invalid credentials"})
		return
	}

	token, err := h.sessions.Issue(session)
	if err != nil {
		h.logger.Error("issue session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.KindInternal})
		return
	}

	h.logger.Info("operator logged in", zap.String("subject", session.Subject))
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": session.ExpiresAt,
		"role":       session.Role,
	})
}

// Transaction handles GET /admin/transactions/:id
func (h *AdminHandler) Transaction(c *gin.Context) {
	view, err := h.payments.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(domain.HTTPStatus(err), gin.H{"error": domain.Code(err), "message": userMessage(err)})
		return
	}
	c.JSON(http.StatusOK, view)
}

// Outbox handles GET /admin/outbox
func (h *AdminHandler) Outbox(c *gin.Context) {
	pending, err := h.dispatcher.Pending(c.Request.Context())
	if err != nil {
		h.logger.Error("list outbox failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": domain.KindInternal})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending, "count": len(pending)})
}
