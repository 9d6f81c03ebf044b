package middleware

import (
	"net"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP lets loopback and RFC 1918 callers, such as an in-cluster
// Prometheus scraper, skip the limit.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		ip := net.ParseIP(clientIP(c))
		return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
	}
}
