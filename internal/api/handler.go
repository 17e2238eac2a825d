package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"iap-service/config"
	"iap-service/internal/auth"
	"iap-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PurchaseVerifier is the reconciliation core behind the verify endpoint
type PurchaseVerifier interface {
	VerifyPurchase(ctx context.Context, userID string, req *service.VerifyPurchaseRequest) (*service.VerifyPurchaseResponse, error)
}

// Authenticator resolves authorization credentials into identities
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*auth.Identity, error)
}

// Handler contains HTTP handlers
type Handler struct {
	verifier      PurchaseVerifier
	authenticator Authenticator
	cfg           *config.Config
}

// NewHandler creates a new HTTP handler
func NewHandler(verifier PurchaseVerifier, authenticator Authenticator, cfg *config.Config) *Handler {
	return &Handler{
		verifier:      verifier,
		authenticator: authenticator,
		cfg:           cfg,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/config", h.getConfig)

		authed := v1.Group("")
		authed.Use(h.authMiddleware())
		authed.POST("/purchases/verify", h.verifyPurchase)
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

// verifyPurchase handles the purchase verification endpoint
func (h *Handler) verifyPurchase(c *gin.Context) {
	var req service.VerifyPurchaseRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	identity, ok := auth.IdentityFrom(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	resp, err := h.verifier.VerifyPurchase(c.Request.Context(), identity.UserID, &req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrProductNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"role":             resp.Role,
		"credits":          resp.Credits,
		"already_recorded": resp.AlreadyRecorded,
	})
}

// ConfigResponse is the public client configuration. Unset keys serialize
// as null, never as an error.
type ConfigResponse struct {
	StripePublishableKey *string `json:"stripe_publishable_key"`
	GoogleMapsAPIKey     *string `json:"google_maps_api_key"`
}

// getConfig echoes the public client configuration
func (h *Handler) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, ConfigResponse{
		StripePublishableKey: nullable(h.cfg.PublicKeys.StripePublishableKey),
		GoogleMapsAPIKey:     nullable(h.cfg.PublicKeys.GoogleMapsAPIKey),
	})
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
