package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityConfig selects the security headers sent with every response.
// JSON endpoints under APIPrefix get APIPolicy as their
// Content-Security-Policy; the HTML catalog gets PagePolicy, which must
// still allow its own forms to post back.
type SecurityConfig struct {
	HSTS                  bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	FrameDeny             bool
	APIPrefix             string
	APIPolicy             []string
	PagePolicy            []string
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		FrameDeny:             true,
		APIPrefix:             "/api/",
		APIPolicy: []string{
			"default-src 'none'",
			"frame-ancestors 'none'",
		},
		PagePolicy: []string{
			"default-src 'self'",
			"img-src 'self' data:",
			"style-src 'self' 'unsafe-inline'",
			"form-action 'self'",
			"frame-ancestors 'none'",
		},
	}
}

func (c SecurityConfig) hstsValue() string {
	if !c.HSTS || c.HSTSMaxAge <= 0 {
		return ""
	}
	value := fmt.Sprintf("max-age=%d", c.HSTSMaxAge)
	if c.HSTSIncludeSubdomains {
		value += "; includeSubDomains"
	}
	return value
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	hsts := config.hstsValue()
	apiPolicy := strings.Join(config.APIPolicy, "; ")
	pagePolicy := strings.Join(config.PagePolicy, "; ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		if hsts != "" {
			h.Set("Strict-Transport-Security", hsts)
		}
		if config.FrameDeny {
			h.Set("X-Frame-Options", "DENY")
		}
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		policy := pagePolicy
		if config.APIPrefix != "" && strings.HasPrefix(c.Request.URL.Path, config.APIPrefix) {
			policy = apiPolicy
		}
		if policy != "" {
			h.Set("Content-Security-Policy", policy)
		}

		c.Next()
	}
}
