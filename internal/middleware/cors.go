package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSOptions configures browser access to the API.
type CORSOptions struct {
	// Origins lists allowed origins; empty or "*" allows any origin.
	Origins []string
	// ExposeHeaders are readable by scripts on the response, e.g. Retry-After on 429.
	ExposeHeaders []string
	MaxAge        time.Duration
}

const corsMethods = "GET, POST, PUT, DELETE, OPTIONS"

// CORS answers preflight requests and tags responses for allowed origins. Requests without an
// Origin header (same-origin, server-to-server callbacks) pass through untouched; preflights
// from other origins get 403.
func CORS(opts CORSOptions) gin.HandlerFunc {
	allowAll := len(opts.Origins) == 0
	allowed := make(map[string]bool, len(opts.Origins))
	for _, o := range opts.Origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	expose := strings.Join(opts.ExposeHeaders, ", ")
	if opts.MaxAge <= 0 {
		opts.MaxAge = 24 * time.Hour
	}
	maxAge := strconv.Itoa(int(opts.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""
		c.Header("Vary", "Origin")
		if !allowAll && !allowed[origin] {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		if expose != "" {
			c.Header("Access-Control-Expose-Headers", expose)
		}
		if preflight {
			c.Header("Access-Control-Allow-Methods", corsMethods)
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", maxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
