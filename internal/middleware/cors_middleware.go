package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Cache-Control, Last-Event-ID, Origin, X-Requested-With"
)

// stripDefaultPort drops :443 and :80 so "admin.drop.az:443" matches "admin.drop.az".
func stripDefaultPort(host string) string {
	if strings.HasSuffix(host, ":443") || strings.HasSuffix(host, ":80") {
		host, _, _ = strings.Cut(host, ":")
	}
	return host
}

// originHost returns the host part of an origin or referer URL, or empty if invalid.
func originHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return stripDefaultPort(strings.ToLower(u.Host))
}

// requestOrigin prefers the Origin header and falls back to the scheme and host of the Referer.
func requestOrigin(r *http.Request) string {
	origin := strings.TrimSpace(strings.TrimSuffix(r.Header.Get("Origin"), "/"))
	if origin != "" {
		return origin
	}
	if u, err := url.Parse(r.Header.Get("Referer")); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Scheme + "://" + u.Host
	}
	return ""
}

// CORSMiddleware echoes the request origin back when its host is one of hosts.
// Preflights from other origins are refused with 403; requests without any
// origin pass through untouched.
func CORSMiddleware(hosts []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if h = stripDefaultPort(strings.ToLower(strings.TrimSpace(h))); h != "" {
			allowed[h] = true
		}
	}

	return func(c *gin.Context) {
		c.Writer.Header().Add("Vary", "Origin")
		origin := requestOrigin(c.Request)
		ok := origin != "" && allowed[originHost(origin)]
		if ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Expose-Headers", "X-Request-Id")
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		if origin != "" && !ok {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Header("Access-Control-Allow-Methods", corsAllowMethods)
		c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		c.Header("Access-Control-Max-Age", "86400")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
