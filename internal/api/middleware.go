package api

import (
	"net/http"
	"strconv"
	"time"

	"iap-service/internal/auth"
	"iap-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const allowedCORSHeaders = "authorization, x-client-info, apikey, content-type"

// corsMiddleware emits the permissive CORS header set required by the
// browser clients and answers pre-flight requests with 200 "ok".
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", allowedCORSHeaders)

		if c.Request.Method == http.MethodOptions {
			c.String(http.StatusOK, "ok")
			c.Abort()
			return
		}

		c.Next()
	}
}

// authMiddleware resolves the Authorization header against the identity
// service and fails closed: no verified identity, no handler.
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := h.authenticator.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			util.AuthFailuresTotal.Inc()
			util.GetLogger().Debug("Authentication rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		ctx := auth.WithIdentity(c.Request.Context(), *identity)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
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
