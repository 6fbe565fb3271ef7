package middleware

import (
	"compress/gzip"
	"strings"

	"github.com/gin-gonic/gin"
)

// CompressConfig represents compression configuration
type CompressConfig struct {
	Level     int
	Types     []string
	Blacklist []string
}

// DefaultCompressConfig returns default compression configuration
func DefaultCompressConfig() CompressConfig {
	return CompressConfig{
		Level: gzip.DefaultCompression,
		Types: []string{
			"application/json",
			"text/css",
			"text/html",
			"text/plain",
		},
		Blacklist: []string{
			"/api/v1/health",
			"/metrics",
		},
	}
}

func (c CompressConfig) compressible(contentType string) bool {
	for _, t := range c.Types {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

// gzipWriter decides on the first body write, once the handler has set the
// content type.
type gzipWriter struct {
	gin.ResponseWriter
	config  CompressConfig
	gz      *gzip.Writer
	decided bool
}

func (g *gzipWriter) decide() {
	if g.decided {
		return
	}
	g.decided = true

	h := g.Header()
	if g.ResponseWriter.Written() || h.Get("Content-Encoding") != "" || !g.config.compressible(h.Get("Content-Type")) {
		return
	}
	gz, err := gzip.NewWriterLevel(g.ResponseWriter, g.config.Level)
	if err != nil {
		return
	}
	g.gz = gz
	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")
}

func (g *gzipWriter) Write(data []byte) (int, error) {
	g.decide()
	if g.gz != nil {
		return g.gz.Write(data)
	}
	return g.ResponseWriter.Write(data)
}

func (g *gzipWriter) WriteString(s string) (int, error) {
	return g.Write([]byte(s))
}

func (g *gzipWriter) close() {
	if g.gz != nil {
		_ = g.gz.Close()
	}
}

// Compress adds gzip compression to responses
func Compress(config CompressConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, path := range config.Blacklist {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		if !strings.Contains(c.Request.Header.Get("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		w := &gzipWriter{ResponseWriter: c.Writer, config: config}
		c.Writer = w
		defer func() {
			w.close()
			c.Writer = w.ResponseWriter
		}()

		c.Next()
	}
}
