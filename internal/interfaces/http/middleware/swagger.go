package middleware

import (
	"net"
	"strings"

	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SwaggerRoute is the prefix the API documentation is served under
const SwaggerRoute = "/swagger"

// SwaggerConfig controls access to the API documentation
type SwaggerConfig struct {
	Enabled     bool     // serve the documentation at all
	RequireAuth bool     // run the JWT middleware in front of it
	AllowedIPs  []string // IPs or CIDRs, empty allows every client
}

// SwaggerProtection guards the documentation routes. Disabled docs answer
// 404, clients outside AllowedIPs get 403, and with RequireAuth the request
// must also pass jwtMiddleware.
func SwaggerProtection(cfg SwaggerConfig, jwtMiddleware gin.HandlerFunc) gin.HandlerFunc {
	allowedIPs, allowedNets := parseAllowList(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			abort(c, dto.ErrCodeNotFound, "API documentation is not available")
			return
		}

		if len(cfg.AllowedIPs) > 0 && !isIPAllowed(clientIP(c), allowedIPs, allowedNets) {
			abort(c, dto.ErrCodeForbidden, "Access to API documentation is restricted")
			return
		}

		if cfg.RequireAuth && jwtMiddleware != nil {
			jwtMiddleware(c)
			if c.IsAborted() {
				return
			}
		}

		c.Next()
	}
}

// parseAllowList splits entries into single IPs and CIDR networks.
// Unparseable entries are dropped.
func parseAllowList(entries []string) ([]net.IP, []*net.IPNet) {
	var ips []net.IP
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				nets = append(nets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			ips = append(ips, ip)
		}
	}
	return ips, nets
}

// clientIP prefers gin's ClientIP, which honors trusted proxies, and falls
// back to the remote address
func clientIP(c *gin.Context) net.IP {
	if ip := net.ParseIP(c.ClientIP()); ip != nil {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	return net.ParseIP(host)
}

func isIPAllowed(ip net.IP, allowedIPs []net.IP, allowedNets []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range allowedIPs {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range allowedNets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
