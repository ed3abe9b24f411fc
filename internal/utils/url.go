package utils

import (
	"net/url"
)

// ValidateURL reports whether rawURL is an absolute http or https URL with a
// host, as expected of *_BASE_URL variables
func ValidateURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false
	}

	// 确保协议是http或https
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	return parsed.Host != ""
}
