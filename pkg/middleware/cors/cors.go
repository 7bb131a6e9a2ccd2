package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Config controls which cross-origin requests the API accepts. The zero
// value allows every origin with the default headers and methods, which is
// what local frontend development needs.
type Config struct {
	// AllowedOrigins lists the origins permitted to call the API. Empty
	// means any origin.
	AllowedOrigins []string
	// AllowedHeaders extends the default header allowance.
	AllowedHeaders []string
	// MaxAge caps how long browsers may cache the preflight response.
	MaxAge time.Duration
}

// defaultHeaders covers what the TesHub frontend sends: the bearer token,
// JSON and multipart content types, and the request id echo.
var defaultHeaders = []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"}

const defaultMaxAge = 10 * time.Minute

// New builds the CORS middleware from the configured origin list.
func New(cfg Config) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[normalizeOrigin(origin)] = struct{}{}
	}
	allowAll := len(allowed) == 0

	headers := strings.Join(append(defaultHeaders, cfg.AllowedHeaders...), ", ")
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	maxAgeSeconds := strconv.Itoa(int(maxAge.Seconds()))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Vary", "Origin")

		origin := c.GetHeader("Origin")
		switch {
		case origin != "":
			if _, ok := allowed[normalizeOrigin(origin)]; ok || allowAll {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		case allowAll:
			h.Set("Access-Control-Allow-Origin", "*")
		}

		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Max-Age", maxAgeSeconds)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(origin, "/"))
}
