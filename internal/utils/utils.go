package utils

import "strings"

// secretMarkers are name fragments of variables whose values are masked
var secretMarkers = []string{"KEY", "TOKEN", "SECRET", "PASSWORD"}

// MaskAPIKey masks the API key for display
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// IsSecretName reports whether an environment variable name looks like it
// holds a credential
func IsSecretName(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range secretMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// MaskValue masks value when name looks like a credential
func MaskValue(name, value string) string {
	if IsSecretName(name) {
		return MaskAPIKey(value)
	}
	return value
}
