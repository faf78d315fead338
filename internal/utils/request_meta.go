package utils

import (
	"net"
	"strings"

	"github.com/campusstay/reservation-backend/internal/models"
	"github.com/gin-gonic/gin"
	ua "github.com/mssola/user_agent"
)

var privateRanges = mustParseCIDRs("10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16")

// RequestMetaFromGin collects the caller metadata stored with payment events
func RequestMetaFromGin(c *gin.Context) models.RequestMeta {
	userAgent := c.Request.UserAgent()
	return models.RequestMeta{
		IPAddress:  ClientIP(c),
		UserAgent:  userAgent,
		DeviceType: DeviceType(userAgent),
	}
}

// ClientIP prefers X-Real-IP, then the first public address in
// X-Forwarded-For, then whatever gin derived from the connection.
func ClientIP(c *gin.Context) string {
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		if ip := net.ParseIP(realIP); ip != nil && !isPrivate(ip) {
			return realIP
		}
	}

	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		var first string
		for _, part := range strings.Split(forwarded, ",") {
			candidate := strings.TrimSpace(part)
			ip := net.ParseIP(candidate)
			if ip == nil {
				continue
			}
			if first == "" {
				first = candidate
			}
			if !isPrivate(ip) && !ip.IsLoopback() {
				return candidate
			}
		}
		if first != "" {
			return first
		}
	}

	return c.ClientIP()
}

// DeviceType classifies a User-Agent as mobile, tablet, desktop, bot or unknown
func DeviceType(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}
	parser := ua.New(userAgent)
	if parser.Bot() {
		return "bot"
	}
	if parser.Mobile() {
		lower := strings.ToLower(userAgent)
		if strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") {
			return "tablet"
		}
		return "mobile"
	}
	return "desktop"
}

func isPrivate(ip net.IP) bool {
	for _, subnet := range privateRanges {
		if subnet.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, subnet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets = append(nets, subnet)
	}
	return nets
}
