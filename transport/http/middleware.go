package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/dealguard/core"
	"github.com/layer-3/dealguard/service"
	"github.com/rs/zerolog"
)

const identityKey = "identity"

// RequireIdentity rejects requests while nobody is signed in
func RequireIdentity(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := authService.Identity()
		if !id.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not signed in"})
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// RequestLogger logs one line per request
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

func identityFrom(c *gin.Context) core.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return core.Identity{}
	}
	id, _ := v.(core.Identity)
	return id
}
