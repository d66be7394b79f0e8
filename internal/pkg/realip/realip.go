// Package realip extracts the originating client address of a request that
// may have traversed one or more reverse proxies or a CDN.
package realip

import (
	"net"
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Unknown is returned when no usable address could be extracted.
const Unknown = "0.0.0.0"

// proxyHeaders, in trust order. X-Real-Ip is set by the fronting proxy and
// wins over the client-forgeable forwarding chains behind it.
var proxyHeaders = []string{
	"X-Real-Ip",
	"X-Forwarded-For",
	"X-Client-Ip",
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Original-Forwarded-For",
}

// FromRequest extracts the best client address candidate for a request.
// Proxy headers are consulted in trust order, then the RFC 7239 Forwarded
// header, then the socket remote address. Public addresses are preferred
// over private ones within each header. Returns Unknown when nothing parses.
func FromRequest(c *fiber.Ctx) string {
	for _, header := range proxyHeaders {
		if value := c.Get(header); value != "" {
			if ip := selectPreferredIP(strings.Split(value, ",")); ip != "" {
				return ip
			}
		}
	}

	if forwarded := c.Get("Forwarded"); forwarded != "" {
		if ip := selectPreferredIP(parseForwardedHeader(forwarded)); ip != "" {
			return ip
		}
	}

	if remoteAddr := c.Context().RemoteAddr().String(); remoteAddr != "" {
		if clean, parsed := normalizeIP(remoteAddr); parsed != nil {
			return clean
		}
	}

	if ip := c.IP(); ip != "" {
		if clean, parsed := normalizeIP(ip); parsed != nil {
			return clean
		}
	}

	return Unknown
}

// selectPreferredIP picks the first public IPv4 from the candidate list,
// falling back to the first public IPv6, then the first private address.
// Forwarding chains commonly mix internal hops with the real client.
func selectPreferredIP(values []string) string {
	var ipv6Fallback, privateFallback string

	for _, raw := range values {
		clean, parsed := normalizeIP(raw)
		if parsed == nil {
			continue
		}

		if isPrivateIP(parsed) {
			if privateFallback == "" {
				privateFallback = clean
			}
			continue
		}

		if parsed.To4() != nil {
			return clean
		}
		if ipv6Fallback == "" {
			ipv6Fallback = clean
		}
	}

	if ipv6Fallback != "" {
		return ipv6Fallback
	}
	return privateFallback
}

// normalizeIP cleans a raw header value into a canonical address string.
// Handles quoting, zone identifiers, bracketed IPv6 and addr:port forms.
func normalizeIP(raw string) (string, net.IP) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"")
	if clean == "" {
		return "", nil
	}

	if percent := strings.Index(clean, "%"); percent != -1 {
		clean = clean[:percent]
	}

	if addrPort, err := netip.ParseAddrPort(clean); err == nil {
		return canonical(addrPort.Addr())
	}

	trimmed := clean
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		trimmed = strings.TrimPrefix(trimmed, "[")
		trimmed = strings.TrimSuffix(trimmed, "]")
	}

	if addr, err := netip.ParseAddr(trimmed); err == nil {
		return canonical(addr)
	}

	if host, _, err := net.SplitHostPort(clean); err == nil {
		return normalizeIP(host)
	}

	return "", nil
}

func canonical(addr netip.Addr) (string, net.IP) {
	if addr.Is4In6() {
		addr = addr.Unmap()
	}
	s := addr.String()
	return s, net.ParseIP(s)
}

var privateIPBlocks = []*net.IPNet{
	parseCIDR("10.0.0.0/8"),     // RFC 1918
	parseCIDR("172.16.0.0/12"),  // RFC 1918
	parseCIDR("192.168.0.0/16"), // RFC 1918
	parseCIDR("169.254.0.0/16"), // RFC 3927 Link-Local
	parseCIDR("fc00::/7"),       // RFC 4193 Unique Local Addresses
	parseCIDR("fe80::/10"),      // RFC 4291 Link-Local
	parseCIDR("::1/128"),        // Loopback
	parseCIDR("127.0.0.0/8"),    // Loopback
}

func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}

	for _, block := range privateIPBlocks {
		candidate := ip

		switch len(block.IP) {
		case net.IPv4len:
			if ip4 := ip.To4(); ip4 != nil {
				candidate = ip4
			} else {
				continue
			}
		case net.IPv6len:
			candidate = ip.To16()
			if candidate == nil {
				continue
			}
		}

		if block.Contains(candidate) {
			return true
		}
	}
	return false
}

func parseCIDR(s string) *net.IPNet {
	_, block, _ := net.ParseCIDR(s)
	return block
}

// parseForwardedHeader extracts for= directives from an RFC 7239 header.
func parseForwardedHeader(header string) []string {
	var candidates []string

	for _, entry := range strings.Split(header, ",") {
		for _, part := range strings.Split(entry, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(strings.ToLower(part), "for=") {
				candidates = append(candidates, part[len("for="):])
			}
		}
	}

	return candidates
}
