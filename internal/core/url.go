package core

import (
	"net"
	"net/url"
	"strings"
)

// ValidateURL parses and normalizes an original URL. Only absolute http/https
// URLs with a real host are accepted.
func ValidateURL(originalURL string) (string, error) {
	originalURL = strings.TrimSpace(originalURL)
	if originalURL == "" || len(originalURL) > MaxURLLength {
		return "", ErrInvalidURL
	}

	parsedURL, err := url.Parse(originalURL)
	if err != nil {
		return "", ErrInvalidURL
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", ErrInvalidURL
	}
	if parsedURL.Host == "" {
		return "", ErrInvalidURL
	}

	// The `//` check is to prevent open redirects like `//example.com`.
	// The `..` check is to prevent path traversal attacks.
	if strings.Contains(parsedURL.Path, "..") || strings.Contains(parsedURL.Path, "//") {
		return "", ErrInvalidURL
	}

	if isLocalhost(parsedURL.Host) {
		return "", ErrInvalidURL
	}

	return parsedURL.String(), nil
}

// isLocalhost checks if a given host string represents a local address.
// It returns true if the host is "localhost", "127.0.0.1", "::1", or
// if it's an internal private address (e.g., 10.x.x.x, 192.168.x.x).
func isLocalhost(host string) bool {
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	hostWithoutPort, _, err := net.SplitHostPort(host)
	if err != nil {
		// If splitting fails, assume the host string is just the hostname/IP.
		hostWithoutPort = host
	}

	ip := net.ParseIP(hostWithoutPort)
	if ip == nil {
		return false
	}

	return ip.IsLoopback() || ip.IsPrivate()
}
